// ABOUTME: Streaming recognition client
// ABOUTME: Wires capture input, PCM16 framer and WebSocket transport together
package asr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/asrstream/pkg/audio/capture"
	"github.com/harperreed/asrstream/pkg/audio/encode"
	"github.com/harperreed/asrstream/pkg/audio/engine"
	"github.com/harperreed/asrstream/pkg/audio/input"
	log "github.com/sirupsen/logrus"
)

// Defaults
const (
	DefaultSampleRate = 16000
	DefaultEndpoint   = "ws://localhost:6006/asr"

	closeTimeout = 2 * time.Second
)

// Config holds client configuration
type Config struct {
	// SampleRate of captured audio in Hz
	SampleRate int

	// Endpoint is the recognition WebSocket URL
	Endpoint string

	// Header is sent with the WebSocket handshake
	Header http.Header

	// FrameQueue is the number of frames buffered between capture and send
	FrameQueue int

	// HandshakeTimeout bounds the WebSocket dial
	HandshakeTimeout time.Duration

	// Input supplies audio. Nil captures from the default device through
	// Engine.
	Input input.Input

	// Engine hosts device inputs. Nil creates a malgo engine when Input is
	// nil.
	Engine *engine.Engine
}

func (c *Config) applyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.FrameQueue <= 0 {
		c.FrameQueue = capture.DefaultQueueDepth
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Stats contains client counters for the current or last session
type Stats struct {
	FramesSent    uint64
	BytesSent     uint64
	Results       uint64
	FramesDropped uint64
}

// Client streams captured audio and emits recognition results. Listeners
// run on the client's reader goroutine and must not call Stop.
type Client struct {
	emitter

	config Config

	mu        sync.Mutex
	recording bool
	conn      *websocket.Conn
	writeMu   sync.Mutex
	framer    *capture.Framer
	input     input.Input
	engine    *engine.Engine
	cancel    context.CancelFunc
	senderWg  sync.WaitGroup
	readDone  chan struct{}
	stopping  atomic.Bool
	sessionID string

	transcriptMu sync.Mutex
	segments     map[int]string

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
	results    atomic.Uint64
}

// NewClient creates a new recognition client
func NewClient(config Config) *Client {
	config.applyDefaults()
	return &Client{
		config:   config,
		segments: make(map[int]string),
	}
}

// Start begins a recording session. It is a no-op while recording.
// Failures are reported to status listeners and returned.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		return nil
	}

	err := c.start(ctx)
	if err == nil {
		c.recording = true
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	if err != nil {
		c.emitStatus(Status{Type: StatusError, Message: fmt.Sprintf("Failed to start ASR: %v", err)})
		return fmt.Errorf("failed to start ASR: %w", err)
	}

	log.WithFields(log.Fields{
		"session":  sessionID,
		"endpoint": c.config.Endpoint,
	}).Info("ASR recording started")
	c.emitStatus(Status{Type: StatusInfo, Message: "ASR recording started"})
	return nil
}

// start sets up the session; must hold c.mu
func (c *Client) start(ctx context.Context) error {
	in := c.config.Input
	eng := c.config.Engine
	if in == nil {
		if eng == nil {
			eng = engine.New(nil)
		}
		in = input.NewMalgo(eng, c.config.SampleRate, 1)
	}

	if eng != nil {
		if err := eng.Ensure(); err != nil {
			return err
		}
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.config.Endpoint, c.config.Header)
	if err != nil {
		c.disposeEngine(eng)
		return fmt.Errorf("dial failed: %w", err)
	}

	c.sessionID = uuid.New().String()
	c.transcriptMu.Lock()
	c.segments = make(map[int]string)
	c.transcriptMu.Unlock()
	c.framesSent.Store(0)
	c.bytesSent.Store(0)
	c.results.Store(0)
	c.stopping.Store(false)

	framer := capture.NewFramer(c.config.FrameQueue)
	runCtx, cancel := context.WithCancel(context.Background())
	readDone := make(chan struct{})

	c.conn = conn
	c.framer = framer
	c.input = in
	c.engine = eng
	c.cancel = cancel
	c.readDone = readDone

	go c.readMessages(conn, readDone)

	c.senderWg.Add(1)
	go c.sendFrames(runCtx, conn, framer)

	if err := in.Start(framer); err != nil {
		c.stopping.Store(true)
		cancel()
		c.senderWg.Wait()
		conn.Close()
		<-readDone
		c.disposeEngine(eng)
		return fmt.Errorf("failed to start input: %w", err)
	}

	return nil
}

// Stop ends the session: capture stops, queued frames are flushed, the
// socket closes with a normal close frame and the engine is released.
// It is a no-op when not recording.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.recording = false
	c.stopping.Store(true)

	conn, in, eng := c.conn, c.input, c.engine
	cancel, readDone := c.cancel, c.readDone
	sessionID := c.sessionID
	c.mu.Unlock()

	var errs []error
	if err := in.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop input: %w", err))
	}

	cancel()
	c.senderWg.Wait()

	c.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Debugf("Close frame not sent: %v", err)
	}

	// the server may deliver final results before acknowledging the close
	select {
	case <-readDone:
	case <-time.After(closeTimeout):
		log.Debug("Timed out waiting for close acknowledgement")
	}
	conn.Close()
	<-readDone

	c.disposeEngine(eng)

	stats := c.Stats()
	log.WithFields(log.Fields{
		"session":     sessionID,
		"frames_sent": stats.FramesSent,
		"dropped":     stats.FramesDropped,
		"results":     stats.Results,
	}).Info("ASR recording stopped")
	c.emitStatus(Status{Type: StatusInfo, Message: "ASR recording stopped"})

	return errors.Join(errs...)
}

func (c *Client) disposeEngine(eng *engine.Engine) {
	if eng == nil {
		return
	}
	if err := eng.Dispose(); err != nil {
		log.Printf("Warning: engine dispose error: %v", err)
	}
}

// sendFrames forwards framed audio while the connection is open. On
// cancel it flushes whatever is still queued.
func (c *Client) sendFrames(ctx context.Context, conn *websocket.Conn, framer *capture.Framer) {
	defer c.senderWg.Done()

	frames := framer.Frames()
	for {
		select {
		case frame := <-frames:
			if err := c.writeFrame(conn, frame); err != nil {
				c.senderFailed(err)
				return
			}
		case <-ctx.Done():
			for {
				select {
				case frame := <-frames:
					if err := c.writeFrame(conn, frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *Client) writeFrame(conn *websocket.Conn, frame []int16) error {
	payload := encode.PCM16Bytes(frame)

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.BinaryMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	c.framesSent.Add(1)
	c.bytesSent.Add(uint64(len(payload)))
	return nil
}

func (c *Client) senderFailed(err error) {
	if c.stopping.Load() {
		return
	}
	log.Printf("Send error: %v", err)
	c.emitStatus(Status{Type: StatusError, Message: fmt.Sprintf("ASR send failed: %v", err)})
}

// readMessages decodes every text message as a result
func (c *Client) readMessages(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if c.stopping.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Printf("Read error: %v", err)
			c.emitStatus(Status{Type: StatusError, Message: fmt.Sprintf("ASR connection lost: %v", err)})
			return
		}

		if messageType != websocket.TextMessage {
			log.Debugf("Ignoring non-text message (%d bytes)", len(data))
			continue
		}

		result, err := ParseResult(data)
		if err != nil {
			log.Printf("Failed to parse result: %v", err)
			continue
		}

		c.results.Add(1)
		if result.Finished {
			c.transcriptMu.Lock()
			c.segments[result.Idx] = result.Text
			c.transcriptMu.Unlock()
		}
		c.emitResult(result)
	}
}

// Recording reports whether a session is active
func (c *Client) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// SessionID returns the ID of the current or last session
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Transcript joins finished segments in idx order
func (c *Client) Transcript() string {
	c.transcriptMu.Lock()
	defer c.transcriptMu.Unlock()

	idxs := make([]int, 0, len(c.segments))
	for idx := range c.segments {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	parts := make([]string, 0, len(idxs))
	for _, idx := range idxs {
		if text := strings.TrimSpace(c.segments[idx]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Stats returns counters for the current or last session
func (c *Client) Stats() Stats {
	c.mu.Lock()
	framer := c.framer
	c.mu.Unlock()

	stats := Stats{
		FramesSent: c.framesSent.Load(),
		BytesSent:  c.bytesSent.Load(),
		Results:    c.results.Load(),
	}
	if framer != nil {
		stats.FramesDropped = framer.Stats().Dropped
	}
	return stats
}
