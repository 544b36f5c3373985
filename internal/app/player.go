// ABOUTME: Playback application orchestration
// ABOUTME: Decodes a source into the playback accumulator that feeds an output
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/harperreed/asrstream/internal/config"
	"github.com/harperreed/asrstream/pkg/audio/decode"
	"github.com/harperreed/asrstream/pkg/audio/engine"
	"github.com/harperreed/asrstream/pkg/audio/input"
	"github.com/harperreed/asrstream/pkg/audio/output"
	"github.com/harperreed/asrstream/pkg/audio/playback"
	"github.com/harperreed/asrstream/pkg/audio/resample"
	log "github.com/sirupsen/logrus"
)

const (
	// readFrames is the decode chunk size in frames
	readFrames = 1024

	// targetBacklog is how far the feeder runs ahead of the device
	targetBacklog = 500 * time.Millisecond

	feedPoll = 10 * time.Millisecond
)

// PlayerConfig holds playback configuration
type PlayerConfig struct {
	// Source is a file path or HTTP URL
	Source   string
	Playback config.PlaybackConfig

	// Output replaces the device named by Playback.Output when set
	Output output.Output
}

// Player streams a decoded source through the accumulator
type Player struct {
	config PlayerConfig
	engine *engine.Engine
	output output.Output
	acc    *playback.Accumulator
	stream decode.Stream

	channels int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
	feedErr  error
}

// NewPlayer creates a player; the accumulator exists from the start so
// stats can be registered before Start
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	policy, err := playback.ParseOverflowPolicy(cfg.Playback.Policy)
	if err != nil {
		return nil, err
	}

	p := &Player{
		config: cfg,
		acc: playback.NewAccumulator(playback.Config{
			Capacity: cfg.Playback.Capacity,
			Policy:   policy,
		}),
		done: make(chan struct{}),
	}
	p.output = cfg.Output
	if p.output == nil {
		if cfg.Playback.Output == "malgo" {
			p.engine = engine.New(nil)
		}
		out, err := NewOutput(cfg.Playback.Output, p.engine)
		if err != nil {
			p.acc.Close()
			return nil, err
		}
		p.output = out
	}
	p.output.SetVolume(cfg.Playback.Volume)
	return p, nil
}

// Start opens the source and output and begins feeding the accumulator
func (p *Player) Start() error {
	stream, err := input.OpenSource(p.config.Source)
	if err != nil {
		return p.fail(err)
	}
	return p.StartStream(stream)
}

// StartStream plays an already open stream
func (p *Player) StartStream(stream decode.Stream) error {
	format := stream.Format()
	if format.Channels < 1 || format.SampleRate < 1 {
		stream.Close()
		return p.fail(fmt.Errorf("invalid source format: %dHz %dch", format.SampleRate, format.Channels))
	}

	rate := p.config.Playback.SampleRate
	if err := p.output.Open(rate, format.Channels, p.acc); err != nil {
		stream.Close()
		return p.fail(fmt.Errorf("failed to open output: %w", err))
	}

	p.stream = stream
	p.channels = format.Channels
	p.ctx, p.cancel = context.WithCancel(context.Background())

	log.WithFields(log.Fields{
		"source":      p.config.Source,
		"codec":       format.Codec,
		"source_rate": format.SampleRate,
		"output_rate": rate,
		"channels":    format.Channels,
		"output":      p.config.Playback.Output,
	}).Info("Playback started")

	p.wg.Add(1)
	go p.feed(resample.New(format.SampleRate, rate, format.Channels), rate)
	return nil
}

// feed decodes, resamples and pushes until the source ends, then waits
// for the backlog to play out
func (p *Player) feed(rs *resample.Resampler, rate int) {
	defer p.wg.Done()
	defer p.finish()

	limit := int(targetBacklog.Seconds() * float64(rate*p.channels))
	buf := make([]float32, readFrames*p.channels)
	var out []float32

	for {
		for p.outstanding() > limit {
			if !p.sleep(feedPoll) {
				return
			}
		}

		n, err := p.stream.Read(buf)
		if n > 0 {
			out = rs.Resample(out[:0], buf[:n])
			if perr := p.acc.Push(p.ctx, out); perr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.feedErr = err
				log.Printf("Decode error: %v", err)
			}
			break
		}
	}

	// drain
	for p.outstanding() > 0 {
		if !p.sleep(feedPoll) {
			return
		}
	}
}

// fail records a start error and ends playback before it began
func (p *Player) fail(err error) error {
	p.feedErr = err
	p.finish()
	return err
}

func (p *Player) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}

// outstanding counts samples pushed but not yet played, including blocks
// the device callback has not drained from the queue
func (p *Player) outstanding() int {
	stats := p.acc.Stats()
	done := stats.Played + stats.Overflowed + stats.Flushed
	if done >= stats.Pushed {
		return 0
	}
	return int(stats.Pushed - done)
}

func (p *Player) sleep(d time.Duration) bool {
	select {
	case <-p.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Done is closed once the source has been played out or Stop was called
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Err waits for Done and returns the start or decode error that ended
// playback, if any
func (p *Player) Err() error {
	<-p.done
	return p.feedErr
}

// Stats returns accumulator statistics
func (p *Player) Stats() playback.Stats {
	return p.acc.Stats()
}

// SetVolume sets the output volume (0-100)
func (p *Player) SetVolume(volume int) {
	p.output.SetVolume(volume)
}

// SetMuted sets the output mute state
func (p *Player) SetMuted(muted bool) {
	p.output.SetMuted(muted)
}

// Stop halts feeding and releases the output, source and engine
func (p *Player) Stop() error {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
	p.finish()

	var errs []error
	if err := p.output.Close(); err != nil {
		errs = append(errs, err)
	}
	p.acc.Close()
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.engine != nil {
		if err := p.engine.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
