// ABOUTME: Entry point for the playback tool
// ABOUTME: Plays a file or HTTP stream through the playback accumulator
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/asrstream/internal/app"
	"github.com/harperreed/asrstream/internal/config"
	"github.com/harperreed/asrstream/internal/metrics"
	log "github.com/sirupsen/logrus"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	outputName  = flag.String("output", "", "Output backend: malgo, oto or portaudio")
	sampleRate  = flag.Int("rate", 0, "Output sample rate in Hz")
	capacity    = flag.Int("capacity", -1, "Backlog capacity in samples (0 = unbounded)")
	policy      = flag.String("policy", "", "Overflow policy: drop-oldest or drop-newest")
	volume      = flag.Int("volume", -1, "Volume 0-100")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file or URL>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	pb := &cfg.Playback
	if *outputName != "" {
		pb.Output = *outputName
	}
	if *sampleRate > 0 {
		pb.SampleRate = *sampleRate
	}
	if *capacity >= 0 {
		pb.Capacity = *capacity
	}
	if *policy != "" {
		pb.Policy = *policy
	}
	if *volume >= 0 {
		pb.Volume = *volume
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	cfg.Logging.File = ""
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if _, err := cfg.Logging.Setup(true); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, flag.Arg(0)); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, source string) error {
	player, err := app.NewPlayer(app.PlayerConfig{
		Source:   source,
		Playback: cfg.Playback,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Addr != "" {
		registry := metrics.New()
		registry.RegisterAccumulator(player)
		go func() {
			if err := registry.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	if err := player.Start(); err != nil {
		player.Stop()
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-player.Done():
			break loop
		case <-sigChan:
			log.Printf("Shutdown signal received")
			break loop
		case <-ticker.C:
			logStats(player, "Playing")
		}
	}

	stopErr := player.Stop()
	logStats(player, "Playback finished")

	if err := player.Err(); err != nil {
		return err
	}
	return stopErr
}

func logStats(p *app.Player, msg string) {
	stats := p.Stats()
	log.WithFields(log.Fields{
		"pushed":     stats.Pushed,
		"played":     stats.Played,
		"underruns":  stats.Underruns,
		"overflowed": stats.Overflowed,
		"backlog":    stats.Backlog,
	}).Info(msg)
}
