// ABOUTME: Input interface definition and shared pacing loop
// ABOUTME: Runs generated blocks at real-time cadence for non-device inputs
package input

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperreed/asrstream/pkg/audio"
)

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("input: already started")

// Input captures mono audio and hands each block to a processor
type Input interface {
	// Start begins delivering blocks to p
	Start(p audio.Processor) error

	// Stop halts delivery and waits for the last callback to return
	Stop() error
}

// Deliverer is implemented by processors that can apply backpressure.
// Unpaced inputs use it so a slow consumer costs time rather than audio.
type Deliverer interface {
	Deliver(ctx context.Context, block []float32) error
}

// Finite is implemented by inputs that end on their own
type Finite interface {
	// Done is closed once the input has delivered its last block
	Done() <-chan struct{}
}

// paced runs a step function on its own goroutine, optionally once per
// interval
type paced struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// start runs step until it returns false or stop is called. ctx passed to
// step is cancelled by stop.
func (p *paced) start(interval time.Duration, realtime bool, step func(ctx context.Context) bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)

		var tick <-chan time.Time
		if realtime {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !step(ctx) {
				return
			}

			if tick == nil {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
	}()

	return nil
}

func (p *paced) stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done is closed when the input stops producing. Nil before Start.
func (p *paced) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// deliver hands block to proc. Real-time runs behave like a device
// callback; unpaced runs wait for the consumer when proc allows it.
func deliver(ctx context.Context, proc audio.Processor, block audio.Block, realtime bool) bool {
	if d, ok := proc.(Deliverer); ok && !realtime {
		return d.Deliver(ctx, block) == nil
	}
	return proc.Process(block, nil)
}

func blockDuration(blockSize, sampleRate int) time.Duration {
	return time.Duration(blockSize) * time.Second / time.Duration(sampleRate)
}
