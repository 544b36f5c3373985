//go:build portaudio

// ABOUTME: PortAudio capture input
// ABOUTME: Reads mono float blocks from the default input device
package input

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/asrstream/pkg/audio"
	log "github.com/sirupsen/logrus"
)

// PortAudio captures from the default PortAudio input device
type PortAudio struct {
	sampleRate int
	stream     *portaudio.Stream
	active     atomic.Bool
}

// NewPortAudio creates a PortAudio capture input
func NewPortAudio(sampleRate int) *PortAudio {
	return &PortAudio{sampleRate: sampleRate}
}

// Start opens and starts the input stream
func (p *PortAudio) Start(proc audio.Processor) error {
	if p.stream != nil {
		return ErrAlreadyStarted
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.active.Store(true)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.sampleRate), audio.DefaultBlockSize, func(in []float32) {
		if p.active.Load() && !proc.Process(in, nil) {
			p.active.Store(false)
		}
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
	log.Printf("Audio input initialized: %dHz (portaudio)", p.sampleRate)
	return nil
}

// Stop halts capture and releases PortAudio
func (p *PortAudio) Stop() error {
	if p.stream == nil {
		return nil
	}
	p.active.Store(false)
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
