// ABOUTME: Audio decoder package for payloads and file sources
// ABOUTME: Provides PCM payload decoding plus MP3, FLAC and WAV streams
// Package decode turns encoded audio into float samples.
//
// Decoder handles raw PCM payloads (16-bit, 24-bit and 32-bit float,
// little-endian) such as audio received over a socket. Stream reads whole
// sources: MP3 via go-mp3, FLAC via mewkiz/flac and WAV via go-audio/wav.
//
// All output is interleaved float32 in [-1, 1].
//
// Example:
//
//	stream, err := decode.Open("speech.flac")
//	n, err := stream.Read(buf)
package decode
