// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit, 24-bit and float32 little-endian PCM to float samples
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/harperreed/asrstream/pkg/audio"
)

// PCMDecoder decodes PCM audio. Bytes of an incomplete trailing sample are
// carried over to the next Decode call.
type PCMDecoder struct {
	bitDepth int
	carry    []byte
}

// NewPCM creates a new PCM decoder. BitDepth 32 means IEEE float.
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 && format.BitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Decode converts PCM bytes to float samples
func (d *PCMDecoder) Decode(data []byte) (audio.Block, error) {
	if len(d.carry) > 0 {
		data = append(d.carry, data...)
		d.carry = nil
	}

	width := d.bitDepth / 8
	numSamples := len(data) / width
	if rest := data[numSamples*width:]; len(rest) > 0 {
		d.carry = append([]byte(nil), rest...)
	}

	samples := make(audio.Block, numSamples)
	switch d.bitDepth {
	case 24:
		for i := range samples {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24BitFloat(b)
		}
	case 32:
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	default:
		for i := range samples {
			samples[i] = audio.SampleFromPCM16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	d.carry = nil
	return nil
}
