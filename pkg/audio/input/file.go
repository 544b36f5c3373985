// ABOUTME: File and HTTP stream input
// ABOUTME: Decodes, downmixes and resamples a source into fixed-size mono blocks
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/harperreed/asrstream/pkg/audio"
	"github.com/harperreed/asrstream/pkg/audio/decode"
	"github.com/harperreed/asrstream/pkg/audio/resample"
	log "github.com/sirupsen/logrus"
)

// OpenSource opens a local file or an HTTP(S) URL as a decoded stream
func OpenSource(location string) (decode.Stream, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return decode.Open(location)
	}

	log.Printf("Streaming from HTTP URL: %s", location)
	resp, err := http.Get(location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: %s", location, resp.Status)
	}

	stream, err := decode.NewStream(decode.CodecForPath(location), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return stream, nil
}

// File plays a decoded source as if it were a microphone
type File struct {
	paced

	location   string
	stream     decode.Stream
	sampleRate int
	blockSize  int
	realtime   bool

	resampler *resample.Resampler
	readBuf   []float32
	pending   []float32
	eof       bool
}

// NewFile creates an input reading location (a path or URL) on Start
func NewFile(location string, sampleRate int, realtime bool) *File {
	return &File{
		location:   location,
		sampleRate: sampleRate,
		blockSize:  audio.DefaultBlockSize,
		realtime:   realtime,
	}
}

// NewStreamInput creates an input over an already open stream
func NewStreamInput(stream decode.Stream, sampleRate int, realtime bool) *File {
	return &File{
		stream:     stream,
		sampleRate: sampleRate,
		blockSize:  audio.DefaultBlockSize,
		realtime:   realtime,
	}
}

// Start opens the source and begins delivering blocks to p
func (f *File) Start(p audio.Processor) error {
	if f.Done() != nil {
		return ErrAlreadyStarted
	}

	if f.stream == nil {
		stream, err := OpenSource(f.location)
		if err != nil {
			return err
		}
		f.stream = stream
	}

	format := f.stream.Format()
	if format.Channels < 1 || format.SampleRate < 1 {
		f.stream.Close()
		f.stream = nil
		return fmt.Errorf("invalid source format: %dHz %dch", format.SampleRate, format.Channels)
	}
	f.resampler = resample.New(format.SampleRate, f.sampleRate, 1)
	f.readBuf = make([]float32, f.blockSize*format.Channels)

	log.WithFields(log.Fields{
		"codec":       format.Codec,
		"source_rate": format.SampleRate,
		"channels":    format.Channels,
		"target_rate": f.sampleRate,
	}).Info("File input started")

	err := f.start(blockDuration(f.blockSize, f.sampleRate), f.realtime, func(ctx context.Context) bool {
		block, err := f.next()
		if err != nil {
			log.Printf("File input error: %v", err)
			return false
		}
		if len(block) == 0 {
			return false
		}
		return deliver(ctx, p, block, f.realtime)
	})
	if err != nil && !errors.Is(err, ErrAlreadyStarted) {
		f.stream.Close()
		f.stream = nil
	}
	return err
}

// Stop halts delivery and closes the source
func (f *File) Stop() error {
	f.stop()
	if f.stream == nil {
		return nil
	}
	return f.stream.Close()
}

// next returns the following block, a short final block, or nil at the end
func (f *File) next() (audio.Block, error) {
	channels := f.stream.Format().Channels

	for len(f.pending) < f.blockSize && !f.eof {
		n, err := f.stream.Read(f.readBuf)
		if n > 0 {
			mono := audio.Downmix(f.readBuf[:n-n%channels], channels)
			f.pending = f.resampler.Resample(f.pending, mono)
		}
		if errors.Is(err, io.EOF) {
			f.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
	}

	n := min(f.blockSize, len(f.pending))
	if n == 0 {
		return nil, nil
	}

	block := make(audio.Block, n)
	copy(block, f.pending)
	f.pending = f.pending[:copy(f.pending, f.pending[n:])]
	return block, nil
}
