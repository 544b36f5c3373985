// ABOUTME: Transcription application orchestration
// ABOUTME: Resolves the server, runs recognition sessions and feeds sinks
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/asrstream/internal/config"
	"github.com/harperreed/asrstream/internal/discovery"
	"github.com/harperreed/asrstream/internal/sink"
	"github.com/harperreed/asrstream/internal/version"
	"github.com/harperreed/asrstream/pkg/asr"
	"github.com/harperreed/asrstream/pkg/audio/engine"
	"github.com/harperreed/asrstream/pkg/audio/input"
	log "github.com/sirupsen/logrus"
)

// Config holds transcriber configuration
type Config struct {
	ASR       config.ASRConfig
	Capture   config.CaptureConfig
	Discovery config.DiscoveryConfig

	// Name is advertised while browsing for servers
	Name string

	// Sink receives results; nil disables recording
	Sink sink.Sink

	// OnResult and OnStatus observe every session's events
	OnResult func(asr.Result)
	OnStatus func(asr.Status)

	// OnSession is called with the session ID after each start
	OnSession func(id string)
}

// Transcriber runs recognition sessions one at a time
type Transcriber struct {
	config   Config
	endpoint string
	engine   *engine.Engine
	ended    chan struct{}

	mu      sync.Mutex
	session *session
	last    *asr.Client
}

type session struct {
	client   *asr.Client
	recorder *sink.Recorder
	stop     chan struct{}
}

// NewTranscriber creates a transcriber. The endpoint is resolved by Resolve.
func NewTranscriber(config Config) *Transcriber {
	t := &Transcriber{
		config:   config,
		endpoint: config.ASR.Endpoint,
		ended:    make(chan struct{}, 1),
	}
	if usesEngine(config.Capture) {
		t.engine = engine.New(nil)
	}
	return t
}

// Resolve picks the recognition endpoint, browsing mDNS when discovery is
// enabled
func (t *Transcriber) Resolve(ctx context.Context) (string, error) {
	if !t.config.Discovery.Enabled {
		return t.endpoint, nil
	}

	log.Printf("Starting server discovery...")
	disc := discovery.NewManager(discovery.Config{
		ServiceName: t.config.Name,
		Version:     version.Version,
	})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	timeout := time.Duration(t.config.Discovery.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	server, err := disc.FindServer(ctx)
	if err != nil {
		return "", fmt.Errorf("no recognition server found after %v: %w", timeout, err)
	}

	t.endpoint = server.Endpoint()
	log.WithFields(log.Fields{
		"name":     server.Name,
		"endpoint": t.endpoint,
	}).Info("Discovered recognition server")
	return t.endpoint, nil
}

// Endpoint returns the resolved endpoint
func (t *Transcriber) Endpoint() string {
	return t.endpoint
}

// Start begins a new session with a fresh input. It is a no-op while a
// session is running.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		return nil
	}

	in, err := NewInput(t.config.Capture, t.config.ASR.SampleRate, t.engine)
	if err != nil {
		return err
	}

	client := asr.NewClient(asr.Config{
		SampleRate:       t.config.ASR.SampleRate,
		Endpoint:         t.endpoint,
		Header:           t.config.ASR.Header(),
		FrameQueue:       t.config.ASR.FrameQueue,
		HandshakeTimeout: t.config.ASR.GetHandshakeTimeout(),
		Input:            in,
		Engine:           t.engine,
	})
	client.OnResult(t.logResult)
	if t.config.OnResult != nil {
		client.OnResult(t.config.OnResult)
	}
	if t.config.OnStatus != nil {
		client.OnStatus(t.config.OnStatus)
	}

	s := &session{
		client: client,
		stop:   make(chan struct{}),
	}
	if t.config.Sink != nil {
		s.recorder = sink.Record(client, t.config.Sink, sink.Session{
			Endpoint:   t.endpoint,
			SampleRate: t.config.ASR.SampleRate,
		})
	}

	if err := client.Start(ctx); err != nil {
		return err
	}

	t.session = s
	t.last = client

	if finite, ok := in.(input.Finite); ok {
		go t.watchSource(finite.Done(), s.stop)
	}
	if t.config.OnSession != nil {
		t.config.OnSession(client.SessionID())
	}
	return nil
}

// watchSource signals Ended when a finite source runs out
func (t *Transcriber) watchSource(done <-chan struct{}, stop <-chan struct{}) {
	select {
	case <-done:
		log.Printf("Audio source finished")
		select {
		case t.ended <- struct{}{}:
		default:
		}
	case <-stop:
	}
}

// Ended receives a value each time a file or tone source runs out
func (t *Transcriber) Ended() <-chan struct{} {
	return t.ended
}

// Stop ends the running session and hands its transcript to the sink. It
// is a no-op when idle.
func (t *Transcriber) Stop(ctx context.Context) error {
	t.mu.Lock()
	s := t.session
	t.session = nil
	t.mu.Unlock()

	if s == nil {
		return nil
	}
	close(s.stop)

	var errs []error
	if err := s.client.Stop(); err != nil {
		errs = append(errs, err)
	}
	if s.recorder != nil {
		if err := s.recorder.Finish(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to record transcript: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Toggle stops a running session or starts a new one
func (t *Transcriber) Toggle(ctx context.Context) error {
	if t.Recording() {
		return t.Stop(ctx)
	}
	return t.Start(ctx)
}

// Recording reports whether a session is running
func (t *Transcriber) Recording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

// Stats returns counters for the current or last session
func (t *Transcriber) Stats() asr.Stats {
	t.mu.Lock()
	client := t.last
	t.mu.Unlock()

	if client == nil {
		return asr.Stats{}
	}
	return client.Stats()
}

// Transcript returns the finished text of the current or last session
func (t *Transcriber) Transcript() string {
	t.mu.Lock()
	client := t.last
	t.mu.Unlock()

	if client == nil {
		return ""
	}
	return client.Transcript()
}

// Close stops any session and releases the sink
func (t *Transcriber) Close(ctx context.Context) error {
	err := t.Stop(ctx)
	if t.config.Sink != nil {
		err = errors.Join(err, t.config.Sink.Close())
	}
	return err
}

func (t *Transcriber) logResult(r asr.Result) {
	fields := log.Fields{"idx": r.Idx, "finished": r.Finished}
	if r.Finished {
		log.WithFields(fields).Infof("Result: %s", r.Text)
		return
	}
	log.WithFields(fields).Debugf("Partial: %s", r.Text)
}
