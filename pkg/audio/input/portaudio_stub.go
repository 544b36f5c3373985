//go:build !portaudio

// ABOUTME: PortAudio capture stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package input

import (
	"errors"

	"github.com/harperreed/asrstream/pkg/audio"
)

// PortAudio capture input (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio capture input
func NewPortAudio(sampleRate int) *PortAudio {
	return &PortAudio{}
}

// Start always fails without the portaudio build tag
func (p *PortAudio) Start(audio.Processor) error {
	return errors.New("PortAudio support not enabled (build with -tags portaudio)")
}

// Stop releases resources
func (p *PortAudio) Stop() error {
	return nil
}
