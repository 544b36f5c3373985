// ABOUTME: FLAC stream decoder
// ABOUTME: Decodes FLAC frames to interleaved float samples via mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/asrstream/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACStream decodes FLAC audio frame by frame
type FLACStream struct {
	src     io.Reader
	stream  *flac.Stream
	format  audio.Format
	scale   float32
	pending []float32
}

// NewFLACStream creates a FLAC stream decoder reading from r
func NewFLACStream(r io.Reader) (*FLACStream, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	bits := int(stream.Info.BitsPerSample)
	if bits < 4 || bits > 32 {
		return nil, fmt.Errorf("unsupported flac bit depth: %d", bits)
	}

	return &FLACStream{
		src:    r,
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(stream.Info.SampleRate),
			Channels:   int(stream.Info.NChannels),
			BitDepth:   bits,
		},
		scale: float32(uint64(1) << (bits - 1)),
	}, nil
}

// Format returns the decoded format
func (s *FLACStream) Format() audio.Format {
	return s.format
}

// Read decodes up to len(samples) interleaved float samples
func (s *FLACStream) Read(samples []float32) (int, error) {
	written := 0
	for written < len(samples) {
		if len(s.pending) == 0 {
			if err := s.nextFrame(); err != nil {
				if errors.Is(err, io.EOF) && written > 0 {
					return written, nil
				}
				return written, err
			}
		}

		n := copy(samples[written:], s.pending)
		s.pending = s.pending[n:]
		written += n
	}
	return written, nil
}

func (s *FLACStream) nextFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := len(frame.Subframes)
	if channels == 0 {
		return nil
	}
	frames := len(frame.Subframes[0].Samples)

	out := make([]float32, frames*channels)
	for ch, sub := range frame.Subframes {
		for i, sample := range sub.Samples {
			out[i*channels+ch] = float32(sample) / s.scale
		}
	}
	s.pending = out
	return nil
}

// Close releases decoder resources
func (s *FLACStream) Close() error {
	s.pending = nil
	return closeSource(s.src)
}
