// ABOUTME: Mock speech recognition server for development and tests
// ABOUTME: Accepts PCM16 frames over WebSocket and replies with segment summaries
package mockasr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/asrstream/pkg/asr"
	"github.com/harperreed/asrstream/pkg/audio/encode"
	log "github.com/sirupsen/logrus"
)

// Config holds mock server configuration
type Config struct {
	// Path serves the WebSocket endpoint
	Path string

	// SampleRate is the rate clients are expected to send
	SampleRate int

	// PartialEvery is the audio duration between partial results
	PartialEvery time.Duration

	// SegmentLength is the audio duration that closes a segment
	SegmentLength time.Duration
}

// DefaultConfig returns defaults matching the client
func DefaultConfig() Config {
	return Config{
		Path:          "/asr",
		SampleRate:    asr.DefaultSampleRate,
		PartialEvery:  500 * time.Millisecond,
		SegmentLength: 5 * time.Second,
	}
}

// Stats contains server counters
type Stats struct {
	Sessions uint64
	Active   int64
	Frames   uint64
	Results  uint64
}

// Server answers recognition sessions with synthetic results
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	sessions atomic.Uint64
	active   atomic.Int64
	frames   atomic.Uint64
	results  atomic.Uint64
	wg       sync.WaitGroup

	connMu  sync.Mutex
	conns   map[*websocket.Conn]struct{}
	closing bool
}

// New creates a mock server
func New(config Config) *Server {
	defaults := DefaultConfig()
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.SampleRate <= 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.PartialEvery <= 0 {
		config.PartialEvery = defaults.PartialEvery
	}
	if config.SegmentLength <= 0 {
		config.SegmentLength = defaults.SegmentLength
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			// development server; any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:   http.NewServeMux(),
		conns: make(map[*websocket.Conn]struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handle mounts an extra handler, such as /metrics, beside the endpoint
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts sessions on ln until ctx is cancelled, then closes open
// sessions and waits for their handlers
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(ln)
	}()

	log.Printf("Mock ASR listening on %s%s", ln.Addr(), s.config.Path)

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// hijacked connections are not closed by Shutdown
	s.closeSessions()
	s.Wait()
	return serveErr
}

// Wait blocks until every session handler has returned
func (s *Server) Wait() {
	s.wg.Wait()
}

// track registers a session for shutdown. It fails once closeSessions has
// run, so no handler starts after Wait begins.
func (s *Server) track(conn *websocket.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
	s.wg.Done()
}

// closeSessions refuses new sessions and closes the open ones
func (s *Server) closeSessions() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.closing = true
	for conn := range s.conns {
		conn.Close()
	}
}

// Stats returns server counters
func (s *Server) Stats() Stats {
	return Stats{
		Sessions: s.sessions.Load(),
		Active:   s.active.Load(),
		Frames:   s.frames.Load(),
		Results:  s.results.Load(),
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)

	s.sessions.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	sess := newSession(s, conn)
	sess.run()
}

type session struct {
	server *Server
	conn   *websocket.Conn
	id     string
	logger *log.Entry

	partialSamples int
	segmentSamples int

	idx         int
	samples     int
	sinceResult int
	sumSquares  float64
}

func newSession(s *Server, conn *websocket.Conn) *session {
	id := uuid.New().String()
	rate := s.config.SampleRate
	return &session{
		server:         s,
		conn:           conn,
		id:             id,
		logger:         log.WithFields(log.Fields{"session": id, "remote": conn.RemoteAddr().String()}),
		partialSamples: int(s.config.PartialEvery.Seconds() * float64(rate)),
		segmentSamples: int(s.config.SegmentLength.Seconds() * float64(rate)),
	}
}

func (s *session) run() {
	defer s.conn.Close()
	s.logger.Info("Session opened")

	s.conn.SetCloseHandler(func(code int, text string) error {
		if s.samples > 0 {
			s.emit(true)
		}
		msg := websocket.FormatCloseMessage(code, "")
		return s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugf("Read error: %v", err)
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			s.logger.Debugf("Ignoring text message: %s", data)
			continue
		}

		if err := s.handleFrame(data); err != nil {
			s.logger.Warnf("Write error: %v", err)
			break
		}
	}

	s.logger.WithField("segments", s.idx).Info("Session closed")
}

func (s *session) handleFrame(data []byte) error {
	s.server.frames.Add(1)

	for _, sample := range encode.PCM16Frame(data) {
		v := float64(sample) / 32768
		s.sumSquares += v * v
		s.samples++
		s.sinceResult++

		if s.samples >= s.segmentSamples {
			if err := s.emit(true); err != nil {
				return err
			}
			continue
		}
		if s.sinceResult >= s.partialSamples {
			if err := s.emit(false); err != nil {
				return err
			}
		}
	}
	return nil
}

// emit sends the current segment summary; a final result starts the next
// segment
func (s *session) emit(finished bool) error {
	result := asr.Result{
		Text:     s.summary(),
		Finished: finished,
		Idx:      s.idx,
	}
	s.sinceResult = 0

	if finished {
		s.idx++
		s.samples = 0
		s.sumSquares = 0
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	s.server.results.Add(1)
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) summary() string {
	rate := s.server.config.SampleRate
	seconds := float64(s.samples) / float64(rate)
	if s.samples == 0 || s.sumSquares == 0 {
		return fmt.Sprintf("segment %d: %.2fs of silence", s.idx, seconds)
	}
	rms := math.Sqrt(s.sumSquares / float64(s.samples))
	return fmt.Sprintf("segment %d: %.2fs of audio at %.1f dBFS", s.idx, seconds, 20*math.Log10(rms))
}
