// ABOUTME: WAV stream decoder
// ABOUTME: Walks the RIFF container with go-audio/wav and decodes the data chunk as PCM
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/harperreed/asrstream/pkg/audio"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// WAVStream decodes PCM and float WAV files
type WAVStream struct {
	src     io.Reader
	data    io.Reader
	format  audio.Format
	decoder Decoder
	buf     []byte
	pending audio.Block
}

// NewWAVStream parses the WAV header from r and positions at the data
// chunk. Readers that cannot seek are buffered in memory first.
func NewWAVStream(r io.Reader) (*WAVStream, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read wav: %w", err)
		}
		rs = bytes.NewReader(body)
	}

	d := wav.NewDecoder(rs)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("invalid wav file: %w", err)
		}
		return nil, errors.New("not a RIFF/WAVE file")
	}

	bits := int(d.BitDepth)
	switch d.WavAudioFormat {
	case wavFormatPCM:
		if bits == 32 {
			return nil, errors.New("32-bit integer wav is not supported")
		}
	case wavFormatFloat:
		if bits != 32 {
			return nil, fmt.Errorf("unsupported float wav bit depth: %d", bits)
		}
	default:
		return nil, fmt.Errorf("unsupported wav format tag: %d", d.WavAudioFormat)
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav data chunk: %w", err)
	}

	decoder, err := NewPCM(audio.Format{Codec: "pcm", BitDepth: bits})
	if err != nil {
		return nil, err
	}

	return &WAVStream{
		src:  r,
		data: io.LimitReader(d.PCMChunk, int64(d.PCMChunk.Size)),
		format: audio.Format{
			Codec:      "wav",
			Channels:   int(d.NumChans),
			SampleRate: int(d.SampleRate),
			BitDepth:   bits,
		},
		decoder: decoder,
	}, nil
}

// Format returns the decoded format
func (s *WAVStream) Format() audio.Format {
	return s.format
}

// Read decodes up to len(samples) interleaved float samples
func (s *WAVStream) Read(samples []float32) (int, error) {
	written := copy(samples, s.pending)
	s.pending = s.pending[written:]

	for written < len(samples) {
		need := (len(samples) - written) * s.format.BitDepth / 8
		if cap(s.buf) < need {
			s.buf = make([]byte, need)
		}
		n, err := s.data.Read(s.buf[:need])
		if n > 0 {
			block, derr := s.decoder.Decode(s.buf[:n])
			if derr != nil {
				return written, derr
			}
			c := copy(samples[written:], block)
			s.pending = block[c:]
			written += c
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if written == 0 {
					return 0, io.EOF
				}
				return written, nil
			}
			return written, fmt.Errorf("wav read error: %w", err)
		}
	}
	return written, nil
}

// Close releases the source
func (s *WAVStream) Close() error {
	s.decoder.Close()
	return closeSource(s.src)
}
