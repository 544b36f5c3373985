// ABOUTME: Audio encoder package for wire formats
// ABOUTME: Provides PCM16 frame serialization and the PCM Encoder
// Package encode serializes audio for the wire and for output devices.
//
// PCM16Bytes lays out a captured frame as little-endian bytes for the
// transcription socket. PCMEncoder converts float blocks to 16-bit,
// 24-bit or 32-bit float little-endian PCM.
//
// Example:
//
//	payload := encode.PCM16Bytes(frame)
//	conn.WriteMessage(websocket.BinaryMessage, payload)
package encode
