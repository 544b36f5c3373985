// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds an oto player from a reader that pulls float blocks from the source
package output

import (
	"fmt"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/asrstream/pkg/audio"
	"github.com/harperreed/asrstream/pkg/audio/encode"
	log "github.com/sirupsen/logrus"
)

// Oto output implementation using oto library
type Oto struct {
	*gain

	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	channels   int
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{gain: newGain()}
}

// Open initializes the oto context and starts a player pulling from src
func (o *Oto) Open(sampleRate, channels int, src audio.Processor) error {
	if o.player != nil {
		return fmt.Errorf("output already open")
	}

	// oto allows a single context per process
	if o.otoCtx != nil && (o.sampleRate != sampleRate || o.channels != channels) {
		log.Printf("Warning: format change detected (%dHz %dch -> %dHz %dch) but oto doesn't support reinitialization. Continuing with existing context.",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.sampleRate = sampleRate
		o.channels = channels
	}

	reader, err := newProcessorReader(src, o.channels, o.gain)
	if err != nil {
		return err
	}

	o.player = o.otoCtx.NewPlayer(reader)
	// 50ms keeps latency close to a callback-driven device
	o.player.SetBufferSize(o.sampleRate * o.channels * 4 / 20)
	o.player.Play()

	log.Printf("Audio output initialized: %dHz, %d channels (oto)", o.sampleRate, o.channels)
	return nil
}

// Close stops the player
func (o *Oto) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

// processorReader adapts a Processor to the io.Reader oto pulls from
type processorReader struct {
	src      audio.Processor
	channels int
	gain     *gain
	encoder  encode.Encoder
	active   atomic.Bool
	scratch  []float32
}

func newProcessorReader(src audio.Processor, channels int, g *gain) (*processorReader, error) {
	encoder, err := encode.NewPCM(audio.Format{Codec: "pcm", Channels: channels, BitDepth: 32})
	if err != nil {
		return nil, err
	}
	r := &processorReader{
		src:      src,
		channels: channels,
		gain:     g,
		encoder:  encoder,
	}
	r.active.Store(true)
	return r, nil
}

// Read fills p with whole float32 frames pulled from the source. It never
// reports EOF; a finished source plays silence.
func (r *processorReader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	total := frames * r.channels
	if cap(r.scratch) < total {
		r.scratch = make([]float32, total)
	}
	samples := r.scratch[:total]

	r.gain.pull(r.src, samples, &r.active)

	data, err := r.encoder.Encode(samples)
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}
