// ABOUTME: Entry point for the asrstream transcriber
// ABOUTME: Parses CLI flags, loads config and runs recognition sessions
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/asrstream/internal/app"
	"github.com/harperreed/asrstream/internal/config"
	"github.com/harperreed/asrstream/internal/metrics"
	"github.com/harperreed/asrstream/internal/sink"
	"github.com/harperreed/asrstream/internal/ui"
	"github.com/harperreed/asrstream/internal/version"
	"github.com/harperreed/asrstream/pkg/asr"
	log "github.com/sirupsen/logrus"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	serverURL   = flag.String("server", "", "Recognition WebSocket URL (skips mDNS)")
	discover    = flag.Bool("discover", false, "Find a recognition server via mDNS")
	source      = flag.String("source", "", "Audio source: mic, tone, or a file path/URL")
	backend     = flag.String("backend", "", "Microphone backend: malgo or portaudio")
	realtime    = flag.Bool("realtime", true, "Pace file and tone sources in real time")
	duration    = flag.Duration("duration", 0, "Stop after this long (0 = until quit or end of source)")
	transcripts = flag.String("transcript-dir", "", "Save transcripts to this directory")
	redisAddr   = flag.String("redis", "", "Publish finished results to this Redis address")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	logFile     = flag.String("log-file", "", "Log file path")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	useTUI := !(*noTUI || *streamLogs)

	logCloser, err := cfg.Logging.Setup(!useTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg, useTUI); err != nil {
		log.Errorf("%v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// applyFlags overrides config values with flags set on the command line
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.ASR.Endpoint = *serverURL
			cfg.Discovery.Enabled = false
		case "discover":
			cfg.Discovery.Enabled = *discover
		case "source":
			cfg.Capture.Source = *source
		case "backend":
			cfg.Capture.Backend = *backend
		case "realtime":
			cfg.Capture.Realtime = *realtime
		case "transcript-dir":
			cfg.Sink.TranscriptDir = *transcripts
		case "redis":
			cfg.Sink.RedisAddr = *redisAddr
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "log-file":
			cfg.Logging.File = *logFile
		case "debug":
			if *debug {
				cfg.Logging.Level = "debug"
			}
		}
	})
}

func run(cfg *config.Config, useTUI bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	sinks, err := openSinks(ctx, cfg.Sink)
	if err != nil {
		return err
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls
	if useTUI {
		controls = ui.NewControls()
	}

	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	// a tone ends by itself; other sources are cut off by a timer
	var deadline <-chan time.Time
	if *duration > 0 {
		if cfg.Capture.Source == "tone" {
			cfg.Capture.ToneSeconds = duration.Seconds()
		} else {
			deadline = time.After(*duration)
		}
	}

	appConfig := app.Config{
		ASR:       cfg.ASR,
		Capture:   cfg.Capture,
		Discovery: cfg.Discovery,
		Name:      fmt.Sprintf("%s-asrstream", hostname),
		OnResult: func(r asr.Result) {
			updateTUI(ui.ResultMsg(r))
		},
		OnStatus: func(s asr.Status) {
			msg := ui.StatusMsg{Status: &s}
			switch s.Message {
			case "ASR recording started":
				msg.Recording = boolPtr(true)
			case "ASR recording stopped":
				msg.Recording = boolPtr(false)
			}
			updateTUI(msg)
		},
		OnSession: func(id string) {
			updateTUI(ui.StatusMsg{SessionID: id})
		},
	}
	if len(sinks) > 0 {
		appConfig.Sink = sinks
	}

	transcriber := app.NewTranscriber(appConfig)

	endpoint, err := transcriber.Resolve(ctx)
	if err != nil {
		sinks.Close()
		return err
	}

	if !useTUI {
		log.Printf("Starting %s", version.String())
		log.Printf("Endpoint: %s, source: %s", endpoint, cfg.Capture.Source)
	}

	if cfg.Metrics.Addr != "" {
		registry := metrics.New()
		registry.RegisterClient(transcriber)
		go func() {
			if err := registry.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	if useTUI {
		tuiProg = ui.Run(controls, endpoint)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			cancel()
		}()
		tuiProg.Send(ui.StatusMsg{Source: cfg.Capture.Source})
		go statsUpdateLoop(ctx, transcriber, updateTUI)
	}

	if err := transcriber.Start(ctx); err != nil {
		if !useTUI {
			transcriber.Close(context.Background())
			return err
		}
		// the TUI shows the failure; the user can retry with space
		log.Printf("Initial start failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var toggle, quit <-chan struct{}
	if controls != nil {
		toggle = controls.Toggle
		quit = controls.Quit
	}

loop:
	for {
		select {
		case <-toggle:
			if err := transcriber.Toggle(ctx); err != nil {
				log.Printf("Toggle failed: %v", err)
			}
		case <-transcriber.Ended():
			if err := transcriber.Stop(ctx); err != nil {
				log.Printf("Stop failed: %v", err)
			}
			if !useTUI {
				break loop
			}
		case <-quit:
			break loop
		case <-deadline:
			log.Printf("Duration reached")
			break loop
		case <-sigChan:
			log.Printf("Shutdown signal received")
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	err = transcriber.Close(context.Background())
	if tuiProg != nil {
		tuiProg.Quit()
	}

	if text := transcriber.Transcript(); text != "" && !useTUI {
		fmt.Println(text)
	}
	stats := transcriber.Stats()
	log.WithFields(log.Fields{
		"frames_sent": stats.FramesSent,
		"bytes_sent":  stats.BytesSent,
		"dropped":     stats.FramesDropped,
		"results":     stats.Results,
	}).Info("Transcriber stopped")
	return err
}

func boolPtr(b bool) *bool {
	return &b
}

// openSinks builds the configured transcript sinks
func openSinks(ctx context.Context, cfg config.SinkConfig) (sink.Multi, error) {
	var sinks sink.Multi

	if cfg.TranscriptDir != "" {
		f, err := sink.NewFile(cfg.TranscriptDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
	}

	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		r, err := sink.NewRedis(pingCtx, sink.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, r)
	}

	return sinks, nil
}

// statsUpdateLoop periodically updates TUI with session statistics
func statsUpdateLoop(ctx context.Context, t *app.Transcriber, updateTUI func(tea.Msg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// runtime stats are sampled less often
	runtimeTicker := time.NewTicker(2 * time.Second)
	defer runtimeTicker.Stop()

	for {
		select {
		case <-runtimeTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			updateTUI(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
			})
		case <-ticker.C:
			stats := t.Stats()
			updateTUI(ui.StatusMsg{Stats: &stats})
		case <-ctx.Done():
			return
		}
	}
}
