// ABOUTME: Decoder and Stream interface definitions
// ABOUTME: Payload decoders and file/stream sources producing float samples
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/asrstream/pkg/audio"
)

// Decoder decodes raw audio payloads to float samples
type Decoder interface {
	// Decode converts encoded audio data to interleaved float samples
	Decode(data []byte) (audio.Block, error)

	// Close releases decoder resources
	Close() error
}

// Stream reads interleaved float samples from an encoded source
type Stream interface {
	// Format returns the decoded stream format
	Format() audio.Format

	// Read fills samples and returns the number written. Returns io.EOF
	// once the source is exhausted.
	Read(samples []float32) (int, error)

	// Close releases the stream and its source
	Close() error
}

// Open opens an audio file and picks a stream decoder by extension
func Open(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	codec := CodecForPath(path)
	stream, err := NewStream(codec, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return stream, nil
}

// CodecForPath maps a file extension or URL path to a codec name
func CodecForPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return "flac"
	case ".wav", ".wave":
		return "wav"
	default:
		return "mp3"
	}
}

// NewStream wraps r in a stream decoder for codec. The stream takes
// ownership of r and closes it if it is an io.Closer.
func NewStream(codec string, r io.Reader) (Stream, error) {
	switch codec {
	case "mp3":
		return NewMP3Stream(r)
	case "flac":
		return NewFLACStream(r)
	case "wav":
		return NewWAVStream(r)
	default:
		return nil, fmt.Errorf("unsupported stream codec: %s", codec)
	}
}

func closeSource(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
