// ABOUTME: Capture input and playback output selection
// ABOUTME: Maps configuration names onto input and output implementations
package app

import (
	"fmt"
	"time"

	"github.com/harperreed/asrstream/internal/config"
	"github.com/harperreed/asrstream/pkg/audio/engine"
	"github.com/harperreed/asrstream/pkg/audio/input"
	"github.com/harperreed/asrstream/pkg/audio/output"
)

// toneAmplitude keeps generated tones well below full scale
const toneAmplitude = 0.5

// NewInput builds the capture input named by cfg. eng hosts malgo devices
// and may be nil for other sources.
func NewInput(cfg config.CaptureConfig, sampleRate int, eng *engine.Engine) (input.Input, error) {
	switch cfg.Source {
	case "mic":
		switch cfg.Backend {
		case "malgo":
			if eng == nil {
				return nil, fmt.Errorf("malgo capture needs an audio engine")
			}
			return input.NewMalgo(eng, sampleRate, 1), nil
		case "portaudio":
			return input.NewPortAudio(sampleRate), nil
		default:
			return nil, fmt.Errorf("unknown capture backend: %s", cfg.Backend)
		}
	case "tone":
		duration := time.Duration(cfg.ToneSeconds * float64(time.Second))
		return input.NewTone(cfg.ToneFrequency, toneAmplitude, sampleRate, duration, cfg.Realtime), nil
	case "":
		return nil, fmt.Errorf("no capture source configured")
	default:
		return input.NewFile(cfg.Source, sampleRate, cfg.Realtime), nil
	}
}

// usesEngine reports whether the capture input runs on a malgo device
func usesEngine(cfg config.CaptureConfig) bool {
	return cfg.Source == "mic" && cfg.Backend == "malgo"
}

// NewOutput builds the playback output by name
func NewOutput(name string, eng *engine.Engine) (output.Output, error) {
	switch name {
	case "malgo":
		if eng == nil {
			return nil, fmt.Errorf("malgo output needs an audio engine")
		}
		return output.NewMalgo(eng), nil
	case "oto":
		return output.NewOto(), nil
	case "portaudio":
		return output.NewPortAudio(), nil
	default:
		return nil, fmt.Errorf("unknown output: %s", name)
	}
}
