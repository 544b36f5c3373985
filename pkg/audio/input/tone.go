// ABOUTME: Sine tone input for smoke tests and demos
// ABOUTME: Generates blocks of a fixed frequency at a chosen sample rate
package input

import (
	"context"
	"math"
	"time"

	"github.com/harperreed/asrstream/pkg/audio"
)

// Tone generates a sine wave
type Tone struct {
	paced

	frequency  float64
	amplitude  float64
	sampleRate int
	blockSize  int
	limit      uint64
	realtime   bool

	sampleIndex uint64
}

// NewTone creates a tone input. A zero duration runs until Stop.
func NewTone(frequency, amplitude float64, sampleRate int, duration time.Duration, realtime bool) *Tone {
	return &Tone{
		frequency:  frequency,
		amplitude:  amplitude,
		sampleRate: sampleRate,
		blockSize:  audio.DefaultBlockSize,
		limit:      uint64(duration.Seconds() * float64(sampleRate)),
		realtime:   realtime,
	}
}

// Start begins generating blocks for p
func (t *Tone) Start(p audio.Processor) error {
	return t.start(blockDuration(t.blockSize, t.sampleRate), t.realtime, func(ctx context.Context) bool {
		block := t.next()
		if len(block) == 0 {
			return false
		}
		return deliver(ctx, p, block, t.realtime)
	})
}

// Stop halts generation
func (t *Tone) Stop() error {
	return t.stop()
}

func (t *Tone) next() audio.Block {
	n := uint64(t.blockSize)
	if t.limit > 0 {
		if t.sampleIndex >= t.limit {
			return nil
		}
		n = min(n, t.limit-t.sampleIndex)
	}

	block := make(audio.Block, n)
	for i := range block {
		ts := float64(t.sampleIndex+uint64(i)) / float64(t.sampleRate)
		block[i] = float32(t.amplitude * math.Sin(2*math.Pi*t.frequency*ts))
	}
	t.sampleIndex += n
	return block
}
