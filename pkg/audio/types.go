// ABOUTME: Audio type definitions
// ABOUTME: Defines formats, float blocks, PCM16 frames and sample conversions
package audio

import "math"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// PCM16Scale maps a normalized sample to the int16 range
	PCM16Scale = 32767

	// DefaultBlockSize is the number of frames per host audio callback
	DefaultBlockSize = 128
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Block is a sequence of normalized float samples in [-1, 1]
type Block []float32

// Frame is a sequence of 16-bit PCM samples, one per Block sample
type Frame []int16

// Processor handles one host audio callback. in is the captured block
// (nil when the device produced nothing), out is the block the host wants
// filled. The return value tells the host whether to keep calling.
type Processor interface {
	Process(in, out []float32) bool
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(in, out []float32) bool

// Process calls f(in, out)
func (f ProcessorFunc) Process(in, out []float32) bool {
	return f(in, out)
}

// SampleToPCM16 scales a normalized sample to int16, rounding half away
// from zero and clamping to [-32768, 32767]. NaN maps to 0.
func SampleToPCM16(sample float32) int16 {
	if sample != sample {
		return 0
	}
	scaled := math.Round(float64(sample) * PCM16Scale)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// SampleFromPCM16 converts an int16 sample to a normalized float
func SampleFromPCM16(sample int16) float32 {
	return float32(sample) / 32768
}

// ToPCM16 converts a block to a PCM16 frame of the same length
func ToPCM16(block []float32) Frame {
	frame := make(Frame, len(block))
	for i, sample := range block {
		frame[i] = SampleToPCM16(sample)
	}
	return frame
}

// FromPCM16 converts a PCM16 frame to a float block
func FromPCM16(frame []int16) Block {
	block := make(Block, len(frame))
	for i, sample := range frame {
		block[i] = SampleFromPCM16(sample)
	}
	return block
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// SampleFrom24BitFloat converts packed 24-bit bytes to a normalized float
func SampleFrom24BitFloat(b [3]byte) float32 {
	return float32(SampleFrom24Bit(b)) / (Max24Bit + 1)
}

// Downmix averages interleaved channels into a mono block
func Downmix(interleaved []float32, channels int) Block {
	if channels <= 1 {
		out := make(Block, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make(Block, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Channel extracts one channel from interleaved samples
func Channel(interleaved []float32, channels, ch int) Block {
	if channels <= 1 {
		return Block(interleaved)
	}

	frames := len(interleaved) / channels
	out := make(Block, frames)
	for i := 0; i < frames; i++ {
		out[i] = interleaved[i*channels+ch]
	}
	return out
}
