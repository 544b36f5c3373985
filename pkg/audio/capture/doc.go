// ABOUTME: Capture package for framing live input audio
// ABOUTME: Provides the Framer processor used by input devices
// Package capture turns live input blocks into PCM16 frames.
//
// A Framer is installed as the audio.Processor of an input device. Each
// callback converts the block and hands the frame to a consumer over a
// bounded queue; the callback never blocks and keeps no state between
// calls.
//
// Example:
//
//	framer := capture.NewFramer(64)
//	err := in.Start(framer)
//	for frame := range framer.Frames() {
//	    conn.WriteMessage(websocket.BinaryMessage, encode.PCM16Bytes(frame))
//	}
package capture
