// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts float audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation over float samples. Handles both upsampling
// and downsampling, and streams: each call continues where the previous
// chunk ended.
//
// Example:
//
//	r := resample.New(44100, 16000, 1)
//	out = r.Resample(out[:0], chunk)
package resample
