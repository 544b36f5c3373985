// ABOUTME: Prometheus metrics for capture, playback and recognition sessions
// ABOUTME: Exposes component stats as counter and gauge funcs over HTTP
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/harperreed/asrstream/internal/mockasr"
	"github.com/harperreed/asrstream/pkg/asr"
	"github.com/harperreed/asrstream/pkg/audio/playback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "asrstream"

// ClientSource reports recognition client counters
type ClientSource interface {
	Stats() asr.Stats
}

// AccumulatorSource reports playback accumulator counters
type AccumulatorSource interface {
	Stats() playback.Stats
}

// ServerSource reports mock server counters
type ServerSource interface {
	Stats() mockasr.Stats
}

// Registry holds the metrics of one process
type Registry struct {
	reg     *prometheus.Registry
	factory promauto.Factory
}

// New creates a registry with Go runtime and process collectors
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:     reg,
		factory: promauto.With(reg),
	}
}

// RegisterClient exposes the client's session counters
func (r *Registry) RegisterClient(c ClientSource) {
	r.counter("asr_frames_sent_total", "Total PCM16 frames sent to the recognizer",
		func() float64 { return float64(c.Stats().FramesSent) })
	r.counter("asr_bytes_sent_total", "Total audio bytes sent to the recognizer",
		func() float64 { return float64(c.Stats().BytesSent) })
	r.counter("asr_results_total", "Total recognition results received",
		func() float64 { return float64(c.Stats().Results) })
	r.counter("capture_frames_dropped_total", "Total frames dropped because the send queue was full",
		func() float64 { return float64(c.Stats().FramesDropped) })
}

// RegisterAccumulator exposes playback counters and the current backlog
func (r *Registry) RegisterAccumulator(a AccumulatorSource) {
	r.counter("playback_samples_pushed_total", "Total samples pushed for playback",
		func() float64 { return float64(a.Stats().Pushed) })
	r.counter("playback_samples_played_total", "Total samples delivered to the output",
		func() float64 { return float64(a.Stats().Played) })
	r.counter("playback_underruns_total", "Total pulls that had to be padded with silence",
		func() float64 { return float64(a.Stats().Underruns) })
	r.counter("playback_samples_overflowed_total", "Total samples discarded by the overflow policy",
		func() float64 { return float64(a.Stats().Overflowed) })
	r.counter("playback_samples_flushed_total", "Total samples discarded by flush requests",
		func() float64 { return float64(a.Stats().Flushed) })
	r.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playback_backlog_samples",
		Help:      "Samples waiting to be played",
	}, func() float64 { return float64(a.Stats().Backlog) })
}

// RegisterServer exposes mock server session counters
func (r *Registry) RegisterServer(s ServerSource) {
	r.counter("mock_sessions_total", "Total recognition sessions accepted",
		func() float64 { return float64(s.Stats().Sessions) })
	r.counter("mock_frames_total", "Total audio frames received",
		func() float64 { return float64(s.Stats().Frames) })
	r.counter("mock_results_total", "Total results sent",
		func() float64 { return float64(s.Stats().Results) })
	r.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mock_active_sessions",
		Help:      "Currently open recognition sessions",
	}, func() float64 { return float64(s.Stats().Active) })
}

func (r *Registry) counter(name, help string, fn func() float64) {
	r.factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// Handler returns the /metrics handler for this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics listening on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
