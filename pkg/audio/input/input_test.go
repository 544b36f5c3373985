// ABOUTME: Tests for tone and file inputs
// ABOUTME: Runs inputs unpaced against collecting processors
package input

import (
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/asrstream/pkg/audio"
	"github.com/harperreed/asrstream/pkg/audio/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	blocks [][]float32
	limit  int
}

func (c *collector) Process(in, _ []float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, append([]float32(nil), in...))
	return c.limit == 0 || len(c.blocks) < c.limit
}

func (c *collector) samples() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []float32
	for _, b := range c.blocks {
		out = append(out, b...)
	}
	return out
}

func waitDone(t *testing.T, f Finite) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("input did not finish")
	}
}

// fakeStream serves interleaved samples in small uneven reads
type fakeStream struct {
	format  audio.Format
	samples []float32
	closed  bool
	closes  int
}

func (s *fakeStream) Format() audio.Format { return s.format }

func (s *fakeStream) Read(out []float32) (int, error) {
	if len(s.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(out[:min(len(out), 50)], s.samples)
	s.samples = s.samples[n:]
	return n, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	s.closes++
	return nil
}

func TestToneDeliversDuration(t *testing.T) {
	tone := NewTone(440, 0.5, 16000, 100*time.Millisecond, false)
	c := &collector{}

	require.NoError(t, tone.Start(c))
	waitDone(t, tone)

	samples := c.samples()
	assert.Len(t, samples, 1600)
	for _, b := range c.blocks[:len(c.blocks)-1] {
		assert.Len(t, b, audio.DefaultBlockSize)
	}

	var peak float32
	for _, s := range samples {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestUnpacedToneWaitsForSlowConsumer(t *testing.T) {
	framer := capture.NewFramer(4)
	tone := NewTone(440, 0.5, 16000, time.Second, false)
	require.NoError(t, tone.Start(framer))

	received := 0
	for received < 125 {
		select {
		case <-framer.Frames():
			received++
			time.Sleep(100 * time.Microsecond)
		case <-time.After(5 * time.Second):
			t.Fatalf("stalled after %d frames", received)
		}
	}
	waitDone(t, tone)

	stats := framer.Stats()
	assert.Equal(t, uint64(0), stats.Dropped)
	assert.Equal(t, uint64(125), stats.Framed)
	assert.Equal(t, uint64(16000), stats.Samples)
}

func TestUnpacedToneStopUnblocksDelivery(t *testing.T) {
	framer := capture.NewFramer(1)
	tone := NewTone(440, 0.5, 16000, 0, false)
	require.NoError(t, tone.Start(framer))

	// nobody reads frames, so the input waits on a full queue
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tone.Stop())
	assert.Equal(t, uint64(1), framer.Stats().Framed)
}

func TestToneStopsWhenProcessorDeclines(t *testing.T) {
	tone := NewTone(440, 0.5, 16000, 0, false)
	c := &collector{limit: 3}

	require.NoError(t, tone.Start(c))
	waitDone(t, tone)

	assert.Len(t, c.blocks, 3)
}

func TestToneRejectsSecondStart(t *testing.T) {
	tone := NewTone(440, 0.5, 16000, 0, true)
	require.NoError(t, tone.Start(&collector{}))
	defer tone.Stop()

	assert.ErrorIs(t, tone.Start(&collector{}), ErrAlreadyStarted)
}

func TestToneStopEndsRealtimeInput(t *testing.T) {
	tone := NewTone(440, 0.5, 16000, 0, true)
	require.NoError(t, tone.Start(&collector{}))

	require.NoError(t, tone.Stop())
	select {
	case <-tone.Done():
	default:
		t.Fatal("expected done after stop")
	}
}

func TestFileDownmixesAndResamples(t *testing.T) {
	// 32kHz stereo, left 0.5 right -0.1: mono average 0.2 at 16kHz
	frames := 3200
	interleaved := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		interleaved[i*2] = 0.5
		interleaved[i*2+1] = -0.1
	}
	stream := &fakeStream{
		format:  audio.Format{Codec: "wav", SampleRate: 32000, Channels: 2, BitDepth: 16},
		samples: interleaved,
	}

	in := NewStreamInput(stream, 16000, false)
	c := &collector{}

	require.NoError(t, in.Start(c))
	waitDone(t, in)
	require.NoError(t, in.Stop())

	samples := c.samples()
	assert.InDelta(t, 1600, len(samples), 2)
	for _, s := range samples {
		assert.InDelta(t, 0.2, s, 1e-6)
	}
	assert.True(t, stream.closed)
}

func TestFileRejectsInvalidFormat(t *testing.T) {
	stream := &fakeStream{format: audio.Format{Codec: "wav"}}
	in := NewStreamInput(stream, 16000, false)

	assert.Error(t, in.Start(&collector{}))
	assert.True(t, stream.closed)

	require.NoError(t, in.Stop())
	assert.Equal(t, 1, stream.closes, "stream closed once")
}

func TestFileMissingSource(t *testing.T) {
	in := NewFile("/nonexistent/speech.flac", 16000, false)
	assert.Error(t, in.Start(&collector{}))
}

func TestPortAudioStubImplementsInput(t *testing.T) {
	var _ Input = NewPortAudio(16000)
	var _ Input = (*Malgo)(nil)
	var _ Input = (*File)(nil)
	var _ Finite = (*Tone)(nil)
}
