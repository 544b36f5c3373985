// ABOUTME: Tests for the playback accumulator
// ABOUTME: Covers FIFO pulls, zero-fill, overflow policies and shutdown
package playback

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pull(a *Accumulator, n int) []float32 {
	out := make([]float32, n)
	a.Pull(out)
	return out
}

func TestAccumulatorSplitsBlockAcrossPulls(t *testing.T) {
	acc := NewAccumulator(Config{})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{0.5, -0.5, 1.0}))

	assert.Equal(t, []float32{0.5, -0.5}, pull(acc, 2))
	assert.Equal(t, 1, acc.Backlog())
	assert.Equal(t, []float32{1.0, 0.0}, pull(acc, 2))
	assert.Equal(t, 0, acc.Backlog())
}

func TestAccumulatorEmptyPullIsSilence(t *testing.T) {
	acc := NewAccumulator(Config{})

	out := []float32{9, 9, 9, 9}
	n := acc.Pull(out)

	assert.Equal(t, 0, n)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Equal(t, uint64(1), acc.Stats().Underruns)
}

func TestAccumulatorPartialDrain(t *testing.T) {
	acc := NewAccumulator(Config{})
	require.NoError(t, acc.Push(context.Background(), []float32{0.1, 0.2}))

	out := make([]float32, 5)
	n := acc.Pull(out)

	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{0.1, 0.2, 0, 0, 0}, out)
	assert.Equal(t, 0, acc.Backlog())
}

func TestAccumulatorConcatenatesPushes(t *testing.T) {
	acc := NewAccumulator(Config{})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{1, 2}))
	require.NoError(t, acc.Push(ctx, []float32{3}))
	require.NoError(t, acc.Push(ctx, []float32{4, 5, 6}))

	assert.Equal(t, []float32{1, 2, 3, 4}, pull(acc, 4))
	assert.Equal(t, []float32{5, 6, 0, 0}, pull(acc, 4))
}

func TestAccumulatorPullZeroLength(t *testing.T) {
	acc := NewAccumulator(Config{})
	require.NoError(t, acc.Push(context.Background(), []float32{1, 2}))

	assert.Equal(t, 0, acc.Pull(nil))
	assert.Equal(t, 2, acc.Backlog())
	assert.Zero(t, acc.Stats().Underruns)
}

func TestAccumulatorEmptyPushIsNoop(t *testing.T) {
	acc := NewAccumulator(Config{QueueDepth: 1})

	require.NoError(t, acc.Push(context.Background(), nil))
	assert.True(t, acc.TryPush([]float32{}))
	assert.Len(t, acc.inbox, 0)
}

func TestAccumulatorCopiesPushedBlock(t *testing.T) {
	acc := NewAccumulator(Config{})
	block := []float32{0.25, 0.5}

	require.NoError(t, acc.Push(context.Background(), block))
	block[0] = -1

	assert.Equal(t, []float32{0.25, 0.5}, pull(acc, 2))
}

// Random push and pull sizes must reproduce the pushed stream exactly,
// followed by silence.
func TestAccumulatorFIFOProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	acc := NewAccumulator(Config{QueueDepth: 1024})
	ctx := context.Background()

	var pushed []float32
	var next float32
	for i := 0; i < 200; i++ {
		block := make([]float32, rng.Intn(300))
		for j := range block {
			next++
			block[j] = next
		}
		pushed = append(pushed, block...)
		require.NoError(t, acc.Push(ctx, block))
	}

	var played []float32
	for len(played) < len(pushed)+64 {
		out := pull(acc, 1+rng.Intn(256))
		played = append(played, out...)
	}

	assert.Equal(t, pushed, played[:len(pushed)])
	for i, s := range played[len(pushed):] {
		assert.Zero(t, s, "tail sample %d", i)
	}
	assert.Equal(t, uint64(len(pushed)), acc.Stats().Played)
}

func TestAccumulatorGrowsAcrossWrap(t *testing.T) {
	acc := NewAccumulator(Config{})
	ctx := context.Background()

	ramp := func(start, n int) []float32 {
		block := make([]float32, n)
		for i := range block {
			block[i] = float32(start + i)
		}
		return block
	}

	first := ramp(0, minRingCapacity-24)
	require.NoError(t, acc.Push(ctx, first))
	pull(acc, len(first)-10)

	// wraps past the end of the buffer
	second := ramp(5000, 100)
	require.NoError(t, acc.Push(ctx, second))
	pull(acc, 1)

	third := ramp(10000, 3*minRingCapacity)
	require.NoError(t, acc.Push(ctx, third))

	want := append(append(append([]float32{}, first[len(first)-9:]...), second...), third...)
	assert.Equal(t, want, pull(acc, len(want)))
}

func TestAccumulatorDropOldest(t *testing.T) {
	acc := NewAccumulator(Config{Capacity: 4, Policy: DropOldest})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{1, 2, 3}))
	require.NoError(t, acc.Push(ctx, []float32{4, 5, 6}))

	assert.Equal(t, []float32{3, 4, 5, 6}, pull(acc, 4))
	assert.Equal(t, uint64(2), acc.Stats().Overflowed)
}

func TestAccumulatorDropOldestOversizedBlock(t *testing.T) {
	acc := NewAccumulator(Config{Capacity: 3, Policy: DropOldest})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{1}))
	require.NoError(t, acc.Push(ctx, []float32{2, 3, 4, 5, 6}))

	assert.Equal(t, []float32{4, 5, 6, 0}, pull(acc, 4))
	assert.Equal(t, uint64(3), acc.Stats().Overflowed)
}

func TestAccumulatorDropNewest(t *testing.T) {
	acc := NewAccumulator(Config{Capacity: 4, Policy: DropNewest})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{1, 2, 3}))
	require.NoError(t, acc.Push(ctx, []float32{4, 5, 6}))

	assert.Equal(t, []float32{1, 2, 3, 4}, pull(acc, 4))
	assert.Equal(t, uint64(2), acc.Stats().Overflowed)
}

func TestAccumulatorBoundedNeverExceedsCapacity(t *testing.T) {
	for _, policy := range []OverflowPolicy{DropOldest, DropNewest} {
		t.Run(policy.String(), func(t *testing.T) {
			acc := NewAccumulator(Config{Capacity: 100, Policy: policy, QueueDepth: 256})
			ctx := context.Background()

			for i := 0; i < 50; i++ {
				require.NoError(t, acc.Push(ctx, make([]float32, 37)))
			}
			acc.Pull(make([]float32, 1))

			assert.LessOrEqual(t, acc.Backlog(), 100)
			stats := acc.Stats()
			assert.Equal(t, uint64(50*37), stats.Pushed)
			assert.Equal(t, stats.Pushed, stats.Played+stats.Overflowed+uint64(stats.Backlog))
		})
	}
}

func TestAccumulatorFlushKeepsLaterPushes(t *testing.T) {
	acc := NewAccumulator(Config{})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{1, 2}))
	require.NoError(t, acc.Flush(ctx))
	require.NoError(t, acc.Push(ctx, []float32{3}))

	assert.Equal(t, []float32{3, 0}, pull(acc, 2))
	assert.Equal(t, uint64(2), acc.Stats().Flushed)
}

func TestAccumulatorTryPushFullQueue(t *testing.T) {
	acc := NewAccumulator(Config{QueueDepth: 2})

	assert.True(t, acc.TryPush([]float32{1}))
	assert.True(t, acc.TryPush([]float32{2}))
	assert.False(t, acc.TryPush([]float32{3}))

	assert.Equal(t, []float32{1, 2, 0}, pull(acc, 3))
	assert.True(t, acc.TryPush([]float32{3}))
}

func TestAccumulatorPushHonorsContext(t *testing.T) {
	acc := NewAccumulator(Config{QueueDepth: 1})
	require.True(t, acc.TryPush([]float32{1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := acc.Push(ctx, []float32{2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAccumulatorClose(t *testing.T) {
	acc := NewAccumulator(Config{})
	ctx := context.Background()

	require.NoError(t, acc.Push(ctx, []float32{1, 2, 3}))
	require.NoError(t, acc.Close())
	require.NoError(t, acc.Close())

	assert.ErrorIs(t, acc.Push(ctx, []float32{4}), ErrClosed)
	assert.ErrorIs(t, acc.Flush(ctx), ErrClosed)
	assert.False(t, acc.TryPush([]float32{4}))

	out := []float32{7, 7}
	assert.Equal(t, 0, acc.Pull(out))
	assert.Equal(t, []float32{0, 0}, out)
	assert.Equal(t, 0, acc.Backlog())
}

func TestAccumulatorCloseUnblocksPush(t *testing.T) {
	acc := NewAccumulator(Config{QueueDepth: 1})
	require.True(t, acc.TryPush([]float32{1}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- acc.Push(context.Background(), []float32{2})
	}()

	time.Sleep(10 * time.Millisecond)
	acc.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("push did not return after close")
	}
}

func TestAccumulatorConcurrentPushPull(t *testing.T) {
	acc := NewAccumulator(Config{QueueDepth: 8})
	ctx := context.Background()

	const blocks = 500
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var v float32
		for i := 0; i < blocks; i++ {
			block := make([]float32, 16)
			for j := range block {
				v++
				block[j] = v
			}
			if err := acc.Push(ctx, block); err != nil {
				return
			}
		}
	}()

	var played []float32
	deadline := time.After(5 * time.Second)
	for len(played) < blocks*16 {
		select {
		case <-deadline:
			t.Fatalf("only played %d samples", len(played))
		default:
		}
		out := make([]float32, 128)
		n := acc.Pull(out)
		played = append(played, out[:n]...)
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	wg.Wait()

	for i, s := range played {
		require.Equal(t, float32(i+1), s, "sample %d", i)
	}
}

func TestAccumulatorProcessAlwaysContinues(t *testing.T) {
	acc := NewAccumulator(Config{})
	require.NoError(t, acc.Push(context.Background(), []float32{0.5}))

	out := make([]float32, 2)
	assert.True(t, acc.Process(nil, out))
	assert.Equal(t, []float32{0.5, 0}, out)
}

func TestParseOverflowPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OverflowPolicy
		wantErr bool
	}{
		{"", DropOldest, false},
		{"drop-oldest", DropOldest, false},
		{"drop-newest", DropNewest, false},
		{"block", DropOldest, true},
	}

	for _, tt := range tests {
		got, err := ParseOverflowPolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
