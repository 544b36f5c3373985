// ABOUTME: Capture framer converting device blocks to PCM16 frames
// ABOUTME: Hands frames to a consumer without ever blocking the audio callback
package capture

import (
	"context"
	"sync/atomic"

	"github.com/harperreed/asrstream/pkg/audio"
)

// DefaultQueueDepth is the number of frames buffered between the audio
// callback and the consumer (about 0.5s of 128-sample blocks at 16kHz)
const DefaultQueueDepth = 64

// Framer converts captured blocks to PCM16 frames once per callback
type Framer struct {
	frames chan audio.Frame

	framed  atomic.Uint64
	dropped atomic.Uint64
	samples atomic.Uint64
}

// FramerStats tracks framer throughput
type FramerStats struct {
	Framed  uint64
	Dropped uint64
	Samples uint64
}

// NewFramer creates a framer whose hand-off queue holds depth frames
func NewFramer(depth int) *Framer {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Framer{
		frames: make(chan audio.Frame, depth),
	}
}

// Process converts in to a PCM16 frame and offers it to the consumer.
// Empty input is a normal condition and produces nothing. A full queue
// drops the frame; the callback never waits. Always returns true.
func (f *Framer) Process(in, _ []float32) bool {
	if len(in) == 0 {
		return true
	}

	frame := audio.ToPCM16(in)

	select {
	case f.frames <- frame:
		f.framed.Add(1)
		f.samples.Add(uint64(len(frame)))
	default:
		f.dropped.Add(1)
	}

	return true
}

// Deliver converts block like Process but waits for queue space instead of
// dropping. It is for sources that run faster than real time, never for a
// device callback. Returns ctx.Err() if ctx ends first.
func (f *Framer) Deliver(ctx context.Context, block []float32) error {
	if len(block) == 0 {
		return nil
	}

	frame := audio.ToPCM16(block)

	select {
	case f.frames <- frame:
		f.framed.Add(1)
		f.samples.Add(uint64(len(frame)))
		return nil
	case <-ctx.Done():
		f.dropped.Add(1)
		return ctx.Err()
	}
}

// Frames returns the consumer side of the hand-off queue
func (f *Framer) Frames() <-chan audio.Frame {
	return f.frames
}

// Stats returns framer statistics
func (f *Framer) Stats() FramerStats {
	return FramerStats{
		Framed:  f.framed.Load(),
		Dropped: f.dropped.Load(),
		Samples: f.samples.Load(),
	}
}
