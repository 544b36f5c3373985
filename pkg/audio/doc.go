// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Block, Frame, Processor and sample conversion functions
// Package audio provides fundamental audio types for streaming speech audio.
//
// This package defines core types used throughout asrstream:
//   - Block: normalized float samples handed around by device callbacks
//   - Frame: 16-bit PCM samples sent to the recognizer
//   - Processor: the per-callback block transform implemented by the
//     capture framer and the playback accumulator
//
// It also provides conversions between float, 16-bit and packed 24-bit
// samples.
//
// Example:
//
//	frame := audio.ToPCM16([]float32{1.0, -1.0, 0.0})
//	// frame == audio.Frame{32767, -32767, 0}
package audio
