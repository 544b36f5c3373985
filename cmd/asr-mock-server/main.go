// ABOUTME: Entry point for the mock recognition server
// ABOUTME: Serves synthetic results over WebSocket with optional mDNS and metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/asrstream/internal/config"
	"github.com/harperreed/asrstream/internal/discovery"
	"github.com/harperreed/asrstream/internal/metrics"
	"github.com/harperreed/asrstream/internal/mockasr"
	"github.com/harperreed/asrstream/internal/version"
	log "github.com/sirupsen/logrus"
)

var (
	configPath    = flag.String("config", "", "YAML config file")
	port          = flag.Int("port", 0, "WebSocket server port (default from config: 6006)")
	name          = flag.String("name", "", "Server friendly name (default: hostname-asr-mock)")
	partialEvery  = flag.Duration("partial-every", 0, "Audio between partial results")
	segmentLength = flag.Duration("segment-length", 0, "Audio per finished segment")
	noMDNS        = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	logFile       = flag.String("log-file", "asr-mock-server.log", "Log file path")
	debug         = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *partialEvery > 0 {
		cfg.Server.PartialEvery = partialEvery.Seconds()
	}
	if *segmentLength > 0 {
		cfg.Server.SegmentLength = segmentLength.Seconds()
	}
	cfg.Logging.File = *logFile
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Log to both file and stdout
	logCloser, err := cfg.Logging.Setup(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	// Determine server name
	serverName := *name
	if serverName == "" {
		serverName = cfg.Server.Name
	}
	if serverName == "" || serverName == config.Default().Server.Name {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-asr-mock", hostname)
	}

	log.Printf("Starting mock ASR server %s (%s) on port %d", serverName, version.String(), cfg.Server.Port)
	log.Printf("Logging to: %s", cfg.Logging.File)
	log.Printf("Press Ctrl-C to stop")

	srv := mockasr.New(mockasr.Config{
		SampleRate:    cfg.ASR.SampleRate,
		PartialEvery:  cfg.Server.GetPartialEvery(),
		SegmentLength: cfg.Server.GetSegmentLength(),
	})

	registry := metrics.New()
	registry.RegisterServer(srv)
	srv.Handle("/metrics", registry.Handler())

	if cfg.Server.MDNS && !*noMDNS {
		mdns := discovery.NewManager(discovery.Config{
			ServiceName: serverName,
			Port:        cfg.Server.Port,
			Version:     version.Version,
		})
		if err := mdns.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
			defer mdns.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		cancel()
	}()

	start := time.Now()
	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Errorf("Server error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}

	stats := srv.Stats()
	log.WithFields(log.Fields{
		"uptime":   time.Since(start).Round(time.Second),
		"sessions": stats.Sessions,
		"frames":   stats.Frames,
		"results":  stats.Results,
	}).Info("Server stopped cleanly")
}
