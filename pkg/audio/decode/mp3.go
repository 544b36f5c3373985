// ABOUTME: MP3 stream decoder
// ABOUTME: Decodes MP3 files and HTTP streams to float samples via go-mp3
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/harperreed/asrstream/pkg/audio"
)

// MP3Stream decodes MP3 audio. go-mp3 always produces 16-bit stereo.
type MP3Stream struct {
	src     io.Reader
	decoder *mp3.Decoder
	buf     []byte
	eof     bool
}

// NewMP3Stream creates an MP3 stream decoder reading from r
func NewMP3Stream(r io.Reader) (*MP3Stream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Stream{
		src:     r,
		decoder: decoder,
	}, nil
}

// Format returns the decoded format
func (s *MP3Stream) Format() audio.Format {
	return audio.Format{
		Codec:      "mp3",
		SampleRate: s.decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}
}

// Read decodes up to len(samples) float samples
func (s *MP3Stream) Read(samples []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}

	need := len(samples) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("mp3 decode error: %w", err)
		}
		s.eof = true
	}

	count := n / 2
	for i := 0; i < count; i++ {
		samples[i] = audio.SampleFromPCM16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if count == 0 && s.eof {
		return 0, io.EOF
	}
	return count, nil
}

// Close releases decoder resources
func (s *MP3Stream) Close() error {
	return closeSource(s.src)
}
