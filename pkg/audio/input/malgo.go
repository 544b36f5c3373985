// ABOUTME: Malgo-based capture input
// ABOUTME: Opens a float32 capture device and forwards channel 0 per callback
package input

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

// Malgo captures from the default input device
type Malgo struct {
	engine     *engine.Engine
	sampleRate int
	channels   int

	mu      sync.Mutex
	device  engine.Device
	proc    audio.Processor
	active  atomic.Bool
	scratch []float32
}

// NewMalgo creates a capture input on the shared engine
func NewMalgo(eng *engine.Engine, sampleRate, channels int) *Malgo {
	if channels < 1 {
		channels = 1
	}
	return &Malgo{
		engine:     eng,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Start opens the capture device
func (m *Malgo) Start(p audio.Processor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return ErrAlreadyStarted
	}

	m.proc = p
	m.active.Store(true)
	m.scratch = make([]float32, audio.DefaultBlockSize*m.channels)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.channels)
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInFrames = audio.DefaultBlockSize
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			m.dataCallback(pInput, frameCount)
		},
	}

	device, err := m.engine.OpenDevice(deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}
	m.device = device

	log.Printf("Audio input initialized: %dHz, %d channels (malgo/F32)", m.sampleRate, m.channels)
	return nil
}

func (m *Malgo) dataCallback(pInput []byte, frameCount uint32) {
	if !m.active.Load() {
		return
	}

	total := int(frameCount) * m.channels
	if len(pInput) < total*4 {
		total = len(pInput) / 4
	}
	if cap(m.scratch) < total {
		m.scratch = make([]float32, total)
	}
	samples := m.scratch[:total]
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pInput[i*4:]))
	}

	block := samples
	if m.channels > 1 {
		block = audio.Channel(samples, m.channels, 0)
	}

	if !m.proc.Process(block, nil) {
		m.active.Store(false)
	}
}

// Stop closes the capture device
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	m.active.Store(false)
	err := m.engine.CloseDevice(m.device)
	m.device = nil
	return err
}
