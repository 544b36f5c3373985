// ABOUTME: Playback accumulator decoupling bursty pushes from fixed-size pulls
// ABOUTME: Pushes arrive as messages; the pull side owns the backlog outright
package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultQueueDepth is the number of pushed blocks that may wait for the
// next pull before Push blocks
const DefaultQueueDepth = 64

// ErrClosed is returned by pushes after Close
var ErrClosed = errors.New("playback: accumulator closed")

// OverflowPolicy selects what a bounded backlog gives up when full
type OverflowPolicy int

const (
	// DropOldest discards the head of the backlog to make room
	DropOldest OverflowPolicy = iota
	// DropNewest discards the part of the incoming block that does not fit
	DropNewest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy parses "drop-oldest" or "drop-newest"
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "drop-oldest":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	default:
		return DropOldest, errors.New("unknown overflow policy: " + s)
	}
}

// Config holds accumulator configuration
type Config struct {
	// Capacity bounds the backlog in samples. Zero leaves it unbounded.
	Capacity int

	// Policy applies when a bounded backlog overflows
	Policy OverflowPolicy

	// QueueDepth is the number of pending push messages
	QueueDepth int
}

// Stats contains accumulator counters. Sample counts are interleaved
// samples.
type Stats struct {
	Pushed     uint64
	Played     uint64
	Underruns  uint64
	Overflowed uint64
	Flushed    uint64
	Backlog    int
}

type message struct {
	samples []float32
	flush   bool
}

// Accumulator buffers pushed blocks and serves exactly-N pulls
type Accumulator struct {
	config Config

	inbox     chan message
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the pull side only
	backlog *ring

	pushed     atomic.Uint64
	played     atomic.Uint64
	underruns  atomic.Uint64
	overflowed atomic.Uint64
	flushed    atomic.Uint64
	depth      atomic.Int64
}

// NewAccumulator creates an accumulator
func NewAccumulator(config Config) *Accumulator {
	if config.QueueDepth <= 0 {
		config.QueueDepth = DefaultQueueDepth
	}
	if config.Capacity < 0 {
		config.Capacity = 0
	}

	return &Accumulator{
		config:  config,
		inbox:   make(chan message, config.QueueDepth),
		done:    make(chan struct{}),
		backlog: newRing(config.Capacity),
	}
}

// Push copies block and queues it behind earlier pushes. It blocks only
// while the message queue is full.
func (a *Accumulator) Push(ctx context.Context, block []float32) error {
	if len(block) == 0 {
		return nil
	}
	return a.send(ctx, message{samples: clone(block)})
}

// TryPush queues block if there is room and reports whether it did
func (a *Accumulator) TryPush(block []float32) bool {
	if len(block) == 0 {
		return true
	}

	select {
	case <-a.done:
		return false
	default:
	}

	select {
	case a.inbox <- message{samples: clone(block)}:
		a.pushed.Add(uint64(len(block)))
		return true
	default:
		return false
	}
}

// Flush queues a request to empty the backlog. Blocks pushed before Flush
// are discarded, blocks pushed after it are kept.
func (a *Accumulator) Flush(ctx context.Context) error {
	return a.send(ctx, message{flush: true})
}

func (a *Accumulator) send(ctx context.Context, msg message) error {
	select {
	case <-a.done:
		return ErrClosed
	default:
	}

	select {
	case a.inbox <- msg:
		a.pushed.Add(uint64(len(msg.samples)))
		return nil
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pull fills out with the oldest backlog samples, zero-filling whatever
// the backlog cannot cover, and returns the number of real samples.
// It never blocks.
func (a *Accumulator) Pull(out []float32) int {
	select {
	case <-a.done:
		a.backlog.reset()
		a.depth.Store(0)
		clear(out)
		return 0
	default:
	}

	a.drain()

	n := a.backlog.read(out)
	if n < len(out) {
		a.underruns.Add(1)
	}
	a.played.Add(uint64(n))
	a.depth.Store(int64(a.backlog.len()))

	return n
}

// Process implements audio.Processor for output callbacks
func (a *Accumulator) Process(_, out []float32) bool {
	a.Pull(out)
	return true
}

// drain applies pending messages in delivery order. It takes at most one
// queue's worth so a busy pusher cannot stall the callback.
func (a *Accumulator) drain() {
	for i := 0; i < cap(a.inbox); i++ {
		select {
		case msg := <-a.inbox:
			a.apply(msg)
		default:
			return
		}
	}
}

func (a *Accumulator) apply(msg message) {
	if msg.flush {
		a.flushed.Add(uint64(a.backlog.len()))
		a.backlog.reset()
		return
	}

	samples := msg.samples
	if a.config.Capacity == 0 {
		a.backlog.grow(len(samples))
		a.backlog.write(samples)
		return
	}

	free := a.backlog.free()
	if len(samples) <= free {
		a.backlog.write(samples)
		return
	}

	switch a.config.Policy {
	case DropNewest:
		a.overflowed.Add(uint64(len(samples) - free))
		a.backlog.write(samples[:free])

	default:
		if len(samples) >= a.config.Capacity {
			dropped := a.backlog.len() + len(samples) - a.config.Capacity
			a.overflowed.Add(uint64(dropped))
			a.backlog.reset()
			a.backlog.write(samples[len(samples)-a.config.Capacity:])
			return
		}
		excess := len(samples) - free
		a.overflowed.Add(uint64(excess))
		a.backlog.discard(excess)
		a.backlog.write(samples)
	}
}

// Backlog returns the backlog length observed by the last pull
func (a *Accumulator) Backlog() int {
	return int(a.depth.Load())
}

// Stats returns accumulator statistics
func (a *Accumulator) Stats() Stats {
	return Stats{
		Pushed:     a.pushed.Load(),
		Played:     a.played.Load(),
		Underruns:  a.underruns.Load(),
		Overflowed: a.overflowed.Load(),
		Flushed:    a.flushed.Load(),
		Backlog:    a.Backlog(),
	}
}

// Close discards the backlog. Later pushes fail with ErrClosed and later
// pulls produce silence.
func (a *Accumulator) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
	})
	return nil
}

func clone(block []float32) []float32 {
	out := make([]float32, len(block))
	copy(out, block)
	return out
}
