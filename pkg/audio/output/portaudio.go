//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform output pulling float blocks in the PortAudio callback
package output

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/asrstream/pkg/audio"
	log "github.com/sirupsen/logrus"
)

// PortAudio output implementation
type PortAudio struct {
	*gain

	stream *portaudio.Stream
	active atomic.Bool
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{gain: newGain()}
}

// Open initializes PortAudio and starts a stream pulling from src
func (p *PortAudio) Open(sampleRate, channels int, src audio.Processor) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.active.Store(true)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), audio.DefaultBlockSize, func(out []float32) {
		p.pull(src, out, &p.active)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	log.Printf("Audio output initialized: %dHz, %d channels (portaudio)", sampleRate, channels)
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
