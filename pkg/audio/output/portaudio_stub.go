//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/harperreed/asrstream/pkg/audio"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct {
	*gain
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{gain: newGain()}
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(sampleRate, channels int, src audio.Processor) error {
	return errPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
