// ABOUTME: Tests for transcript sinks
// ABOUTME: Covers file output, Redis commands, fan-out and the client recorder
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/asrstream/internal/mockasr"
	"github.com/harperreed/asrstream/pkg/asr"
	"github.com/harperreed/asrstream/pkg/audio/input"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	published map[string][]string
	lists     map[string][]string
	hashes    map[string][]interface{}
	err       error
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		published: map[string][]string{},
		lists:     map[string][]string{},
		hashes:    map[string][]interface{}{},
	}
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		f.lists[key] = append(f.lists[key], string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.hashes[key] = values
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func testSession() Session {
	start := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	return Session{
		ID:         "0123456789abcdef",
		Endpoint:   "ws://localhost:6006/asr",
		SampleRate: 16000,
		Started:    start,
		Ended:      start.Add(90 * time.Second),
	}
}

func TestFileFinishWritesHeaderAndTranscript(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	session := testSession()
	require.NoError(t, f.Finish(context.Background(), session, "hello world"))

	path := f.Path(session)
	assert.True(t, strings.HasSuffix(path, "20260301_123000_01234567.txt"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Session ID: 0123456789abcdef")
	assert.Contains(t, content, "Duration: 1m30s")
	assert.Contains(t, content, "Sample Rate: 16000Hz")
	assert.True(t, strings.HasSuffix(content, "---TRANSCRIPT---\n\nhello world\n"))
}

func TestFileSkipsEmptyTranscript(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	session := testSession()
	require.NoError(t, f.Finish(context.Background(), session, "  "))
	_, err = os.Stat(f.Path(session))
	assert.True(t, os.IsNotExist(err))
}

func TestRedisPublishesFinishedResults(t *testing.T) {
	fake := newFakeRedis()
	r := newRedis(fake, RedisConfig{Channel: "results"})
	session := testSession()
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, session, asr.Result{Text: "partial", Idx: 0}))
	require.NoError(t, r.Write(ctx, session, asr.Result{Text: "done", Finished: true, Idx: 0}))

	require.Len(t, fake.published["results"], 1)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fake.published["results"][0]), &msg))
	assert.Equal(t, "0123456789abcdef", msg["session"])
	assert.Equal(t, "done", msg["text"])
	assert.Equal(t, true, msg["finished"])

	assert.Len(t, fake.lists["asrstream:session:0123456789abcdef"], 1)
}

func TestRedisFinishStoresTranscript(t *testing.T) {
	fake := newFakeRedis()
	r := newRedis(fake, RedisConfig{Channel: "results", KeyPrefix: "test:"})

	require.NoError(t, r.Finish(context.Background(), testSession(), "full text"))

	values := fake.hashes["test:0123456789abcdef:meta"]
	require.NotEmpty(t, values)
	assert.Equal(t, "full text", values[len(values)-1])
	assert.Contains(t, values, int64(90000))

	require.NoError(t, r.Close())
	assert.True(t, fake.closed)
}

func TestRedisWriteError(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	r := newRedis(fake, RedisConfig{Channel: "results"})

	err := r.Write(context.Background(), testSession(), asr.Result{Text: "x", Finished: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBLISH results")
}

type captureSink struct {
	mu         sync.Mutex
	results    []asr.Result
	transcript string
	session    Session
	err        error
}

func (c *captureSink) Write(_ context.Context, _ Session, r asr.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	return c.err
}

func (c *captureSink) Finish(_ context.Context, s Session, transcript string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.transcript = transcript
	return c.err
}

func (c *captureSink) Close() error { return c.err }

func TestMultiJoinsErrors(t *testing.T) {
	ok := &captureSink{}
	bad := &captureSink{err: errors.New("disk full")}
	m := Multi{ok, bad}

	err := m.Write(context.Background(), testSession(), asr.Result{Text: "a"})
	require.Error(t, err)
	assert.Len(t, ok.results, 1, "healthy sinks still receive results")

	assert.Error(t, m.Finish(context.Background(), testSession(), "a"))
	assert.Equal(t, "a", ok.transcript)
	assert.Error(t, m.Close())
}

func TestRecorderCapturesSession(t *testing.T) {
	srv := mockasr.New(mockasr.Config{
		PartialEvery:  100 * time.Millisecond,
		SegmentLength: 200 * time.Millisecond,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	tone := input.NewTone(440, 0.5, 16000, 300*time.Millisecond, false)
	client := asr.NewClient(asr.Config{
		Endpoint: "ws" + strings.TrimPrefix(ts.URL, "http") + "/asr",
		Input:    tone,
	})

	capture := &captureSink{}
	rec := Record(client, capture, Session{Endpoint: "mock", SampleRate: 16000})

	require.NoError(t, client.Start(context.Background()))
	select {
	case <-tone.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("tone did not finish")
	}
	require.NoError(t, client.Stop())
	require.NoError(t, rec.Finish(context.Background()))

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.NotEmpty(t, capture.results)
	assert.Equal(t, client.SessionID(), capture.session.ID)
	assert.False(t, capture.session.Ended.IsZero())
	assert.Contains(t, capture.transcript, "segment 0:")
	assert.Equal(t, client.Transcript(), capture.transcript)
}
