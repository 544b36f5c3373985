// ABOUTME: Audio output interface definition
// ABOUTME: Common interface and volume control for pull-based playback backends
package output

import (
	"sync/atomic"

	"github.com/harperreed/asrstream/pkg/audio"
)

// Output represents an audio output device that pulls from a source
type Output interface {
	// Open starts the device. Each callback asks src to fill an
	// interleaved block of frames*channels samples.
	Open(sampleRate, channels int, src audio.Processor) error

	// Close stops the device and releases output resources
	Close() error

	SetVolume(volume int)
	SetMuted(muted bool)
	GetVolume() int
	IsMuted() bool
}

// gain holds volume and mute state shared with the device callback
type gain struct {
	volume atomic.Int32
	muted  atomic.Bool
}

func newGain() *gain {
	g := &gain{}
	g.volume.Store(100)
	return g
}

// SetVolume sets the volume (0-100)
func (g *gain) SetVolume(volume int) {
	g.volume.Store(int32(max(0, min(100, volume))))
}

// SetMuted sets mute state
func (g *gain) SetMuted(muted bool) {
	g.muted.Store(muted)
}

// GetVolume returns current volume
func (g *gain) GetVolume() int {
	return int(g.volume.Load())
}

// IsMuted returns mute state
func (g *gain) IsMuted() bool {
	return g.muted.Load()
}

func (g *gain) multiplier() float32 {
	if g.muted.Load() {
		return 0
	}
	return float32(g.volume.Load()) / 100
}

// pull fills out from src and applies gain. Once src reports it is done
// the device keeps running on silence.
func (g *gain) pull(src audio.Processor, out []float32, active *atomic.Bool) {
	if !active.Load() {
		clear(out)
		return
	}
	if !src.Process(nil, out) {
		active.Store(false)
	}

	m := g.multiplier()
	if m == 1 {
		return
	}
	for i := range out {
		out[i] *= m
	}
}
