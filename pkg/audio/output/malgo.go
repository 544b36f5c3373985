// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Float32 playback device that pulls blocks inside the miniaudio callback
package output

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/harperreed/asrstream/pkg/audio"
	"github.com/harperreed/asrstream/pkg/audio/engine"
	log "github.com/sirupsen/logrus"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	*gain

	engine   *engine.Engine
	device   engine.Device
	channels int
	src      audio.Processor
	active   atomic.Bool
	scratch  []float32
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output on the shared engine
func NewMalgo(eng *engine.Engine) Output {
	return &Malgo{
		gain:   newGain(),
		engine: eng,
	}
}

// Open initializes and starts the playback device
func (m *Malgo) Open(sampleRate, channels int, src audio.Processor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("output already open")
	}

	m.channels = channels
	m.src = src
	m.active.Store(true)
	m.scratch = make([]float32, audio.DefaultBlockSize*channels)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = audio.DefaultBlockSize
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			m.dataCallback(pOutput, frameCount)
		},
	}

	device, err := m.engine.OpenDevice(deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}
	m.device = device

	log.Printf("Audio output initialized: %dHz, %d channels (malgo/F32)", sampleRate, channels)
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	total := int(frameCount) * m.channels
	if cap(m.scratch) < total {
		m.scratch = make([]float32, total)
	}
	samples := m.scratch[:total]

	m.pull(m.src, samples, &m.active)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(s))
	}
}

// Close stops the device and releases it
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	err := m.engine.CloseDevice(m.device)
	m.device = nil
	return err
}
