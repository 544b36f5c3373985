// ABOUTME: Audio output tests
// ABOUTME: Verifies gain handling and the reader that feeds oto
package output

import (
	"context"
	"encoding/binary"
	"math"
	"sync/atomic"
	"testing"

	"github.com/harperreed/asrstream/pkg/audio"
	"github.com/harperreed/asrstream/pkg/audio/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsOutput(t *testing.T) {
	var _ Output = (*PortAudio)(nil)
	var _ Output = (*Oto)(nil)
	var _ Output = (*Malgo)(nil)
}

func TestGainVolumeClamp(t *testing.T) {
	g := newGain()
	assert.Equal(t, 100, g.GetVolume())

	g.SetVolume(150)
	assert.Equal(t, 100, g.GetVolume())
	g.SetVolume(-5)
	assert.Equal(t, 0, g.GetVolume())
}

func TestGainPullAppliesVolumeAndMute(t *testing.T) {
	g := newGain()
	src := audio.ProcessorFunc(func(_, out []float32) bool {
		for i := range out {
			out[i] = 0.5
		}
		return true
	})

	var active atomic.Bool
	active.Store(true)

	out := make([]float32, 4)
	g.SetVolume(50)
	g.pull(src, out, &active)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, out)

	g.SetMuted(true)
	g.pull(src, out, &active)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.True(t, g.IsMuted())
}

func TestGainPullStopsFinishedSource(t *testing.T) {
	g := newGain()
	calls := 0
	src := audio.ProcessorFunc(func(_, out []float32) bool {
		calls++
		for i := range out {
			out[i] = 1
		}
		return false
	})

	var active atomic.Bool
	active.Store(true)

	out := make([]float32, 2)
	g.pull(src, out, &active)
	g.pull(src, out, &active)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []float32{0, 0}, out)
}

func TestProcessorReaderPullsFromAccumulator(t *testing.T) {
	acc := playback.NewAccumulator(playback.Config{})
	require.NoError(t, acc.Push(context.Background(), []float32{0.5, -0.5, 0.25}))

	r, err := newProcessorReader(acc, 1, newGain())
	require.NoError(t, err)

	// 4 frames plus a stray byte that must not be filled
	p := make([]byte, 17)
	n, err := r.Read(p)
	require.NoError(t, err)
	require.Equal(t, 16, n)

	got := make([]float32, 4)
	for i := range got {
		got[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	assert.Equal(t, []float32{0.5, -0.5, 0.25, 0}, got)
}

func TestProcessorReaderShortBuffer(t *testing.T) {
	r, err := newProcessorReader(playback.NewAccumulator(playback.Config{}), 2, newGain())
	require.NoError(t, err)

	n, err := r.Read(make([]byte, 7))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPortAudioStubOrReal(t *testing.T) {
	out := NewPortAudio()
	require.NotNil(t, out)
	assert.Equal(t, 100, out.GetVolume())
}
