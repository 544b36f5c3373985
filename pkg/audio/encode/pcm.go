// ABOUTME: PCM audio encoder
// ABOUTME: Encodes frames and float samples to little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/harperreed/asrstream/pkg/audio"
)

// PCM16Bytes serializes a PCM16 frame as little-endian bytes, the layout
// the recognition service expects on the wire
func PCM16Bytes(frame audio.Frame) []byte {
	out := make([]byte, len(frame)*2)
	for i, sample := range frame {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// PCM16Frame parses little-endian bytes back into a frame. A trailing odd
// byte is ignored.
func PCM16Frame(data []byte) audio.Frame {
	frame := make(audio.Frame, len(data)/2)
	for i := range frame {
		frame[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return frame
}

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder. BitDepth 32 means IEEE float.
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 && format.BitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Encode converts float samples to PCM bytes
func (e *PCMEncoder) Encode(samples audio.Block) ([]byte, error) {
	switch e.bitDepth {
	case 24:
		output := make([]byte, len(samples)*3)
		for i, sample := range samples {
			b := audio.SampleTo24Bit(to24Bit(sample))
			copy(output[i*3:], b[:])
		}
		return output, nil
	case 32:
		output := make([]byte, len(samples)*4)
		for i, sample := range samples {
			binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(sample))
		}
		return output, nil
	default:
		return PCM16Bytes(audio.ToPCM16(samples)), nil
	}
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

func to24Bit(sample float32) int32 {
	if sample != sample {
		return 0
	}
	scaled := math.Round(float64(sample) * audio.Max24Bit)
	if scaled > audio.Max24Bit {
		return audio.Max24Bit
	}
	if scaled < audio.Min24Bit {
		return audio.Min24Bit
	}
	return int32(scaled)
}
