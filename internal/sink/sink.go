// ABOUTME: Transcript sinks receiving recognition results
// ABOUTME: Defines the Sink interface, fan-out and the client recorder
package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperreed/asrstream/pkg/asr"
	log "github.com/sirupsen/logrus"
)

const writeTimeout = 2 * time.Second

// Session describes one recording session
type Session struct {
	ID         string
	Endpoint   string
	SampleRate int
	Started    time.Time
	Ended      time.Time
}

// Duration returns how long the session ran
func (s Session) Duration() time.Duration {
	if s.Ended.IsZero() {
		return time.Since(s.Started)
	}
	return s.Ended.Sub(s.Started)
}

// Sink stores recognition output
type Sink interface {
	// Write records one result as it arrives
	Write(ctx context.Context, session Session, result asr.Result) error

	// Finish records the complete transcript once the session ends
	Finish(ctx context.Context, session Session, transcript string) error

	Close() error
}

// Multi fans out to several sinks, collecting every error
type Multi []Sink

// Write forwards result to every sink
func (m Multi) Write(ctx context.Context, session Session, result asr.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, session, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Finish forwards the transcript to every sink
func (m Multi) Finish(ctx context.Context, session Session, transcript string) error {
	var errs []error
	for _, s := range m {
		if err := s.Finish(ctx, session, transcript); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder feeds a client's results into a sink for one session
type Recorder struct {
	client *asr.Client
	sink   Sink

	mu       sync.Mutex
	session  Session
	listener asr.ListenerID
}

// Record subscribes to client results. Call it before Start so early
// results are not missed; the session ID is read from the client lazily.
func Record(client *asr.Client, s Sink, session Session) *Recorder {
	r := &Recorder{
		client:  client,
		sink:    s,
		session: session,
	}
	if r.session.Started.IsZero() {
		r.session.Started = time.Now()
	}
	r.listener = client.OnResult(r.onResult)
	return r
}

func (r *Recorder) current() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.ID == "" {
		r.session.ID = r.client.SessionID()
	}
	return r.session
}

func (r *Recorder) onResult(result asr.Result) {
	session := r.current()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.sink.Write(ctx, session, result); err != nil {
		log.WithFields(log.Fields{
			"session": session.ID,
			"idx":     result.Idx,
		}).Warnf("Sink write failed: %v", err)
	}
}

// Finish unsubscribes and hands the client's transcript to the sink.
// Call it after the client has stopped.
func (r *Recorder) Finish(ctx context.Context) error {
	r.client.Off(r.listener)

	session := r.current()
	session.Ended = time.Now()
	return r.sink.Finish(ctx, session, r.client.Transcript())
}
