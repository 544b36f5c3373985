// ABOUTME: Configuration for asrstream binaries
// ABOUTME: Defaults, YAML file, .env and ASR_* environment overrides with validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration
type Config struct {
	ASR       ASRConfig       `yaml:"asr"`
	Capture   CaptureConfig   `yaml:"capture"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Server    ServerConfig    `yaml:"server"`
	Sink      SinkConfig      `yaml:"sink"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ASRConfig contains recognition client settings
type ASRConfig struct {
	Endpoint         string            `yaml:"endpoint"`
	SampleRate       int               `yaml:"sample_rate"`
	FrameQueue       int               `yaml:"frame_queue"`
	HandshakeTimeout int               `yaml:"handshake_timeout"` // seconds
	AuthToken        string            `yaml:"auth_token"`
	Headers          map[string]string `yaml:"headers"`
}

// CaptureConfig selects where audio comes from
type CaptureConfig struct {
	// Source is "mic", "tone", or a file path or URL
	Source        string  `yaml:"source"`
	Backend       string  `yaml:"backend"` // malgo or portaudio
	Realtime      bool    `yaml:"realtime"`
	ToneFrequency float64 `yaml:"tone_frequency"`
	ToneSeconds   float64 `yaml:"tone_seconds"`
}

// PlaybackConfig contains output and accumulator settings
type PlaybackConfig struct {
	Output     string `yaml:"output"` // malgo, oto or portaudio
	SampleRate int    `yaml:"sample_rate"`
	Capacity   int    `yaml:"capacity"` // samples, 0 = unbounded
	Policy     string `yaml:"policy"`   // drop-oldest or drop-newest
	Volume     int    `yaml:"volume"`
}

// ServerConfig contains mock recognition server settings
type ServerConfig struct {
	Port          int     `yaml:"port"`
	Name          string  `yaml:"name"`
	MDNS          bool    `yaml:"mdns"`
	PartialEvery  float64 `yaml:"partial_every"`  // seconds
	SegmentLength float64 `yaml:"segment_length"` // seconds
}

// SinkConfig contains transcript sink settings
type SinkConfig struct {
	TranscriptDir string `yaml:"transcript_dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisChannel  string `yaml:"redis_channel"`
}

// DiscoveryConfig contains mDNS browse settings
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"` // seconds
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ASR: ASRConfig{
			Endpoint:         "ws://localhost:6006/asr",
			SampleRate:       16000,
			FrameQueue:       64,
			HandshakeTimeout: 10,
		},
		Capture: CaptureConfig{
			Source:        "mic",
			Backend:       "malgo",
			Realtime:      true,
			ToneFrequency: 440,
		},
		Playback: PlaybackConfig{
			Output:     "malgo",
			SampleRate: 48000,
			Policy:     "drop-oldest",
			Volume:     100,
		},
		Server: ServerConfig{
			Port:          6006,
			Name:          "asrstream-mock",
			MDNS:          true,
			PartialEvery:  0.5,
			SegmentLength: 5,
		},
		Sink: SinkConfig{
			RedisChannel: "asrstream:results",
		},
		Discovery: DiscoveryConfig{
			Timeout: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "asrstream.log",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then .env and ASR_* environment variables. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files, skipping missing ones.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from ASR_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", name, v)
		}
		*dst = n
		return nil
	}

	str("ASR_ENDPOINT", &c.ASR.Endpoint)
	str("ASR_AUTH_TOKEN", &c.ASR.AuthToken)
	str("ASR_SOURCE", &c.Capture.Source)
	str("ASR_OUTPUT", &c.Playback.Output)
	str("ASR_TRANSCRIPT_DIR", &c.Sink.TranscriptDir)
	str("ASR_REDIS_ADDR", &c.Sink.RedisAddr)
	str("ASR_REDIS_PASSWORD", &c.Sink.RedisPassword)
	str("ASR_REDIS_CHANNEL", &c.Sink.RedisChannel)
	str("ASR_METRICS_ADDR", &c.Metrics.Addr)
	str("ASR_LOG_LEVEL", &c.Logging.Level)
	str("ASR_LOG_FILE", &c.Logging.File)

	for name, dst := range map[string]*int{
		"ASR_SAMPLE_RATE": &c.ASR.SampleRate,
		"ASR_REDIS_DB":    &c.Sink.RedisDB,
		"ASR_SERVER_PORT": &c.Server.Port,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.ASR.Validate(); err != nil {
		return fmt.Errorf("asr config: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates recognition client settings
func (a *ASRConfig) Validate() error {
	if a.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}
	if a.FrameQueue < 1 {
		return fmt.Errorf("frame_queue must be at least 1, got %d", a.FrameQueue)
	}
	if a.HandshakeTimeout < 1 {
		return fmt.Errorf("handshake_timeout must be at least 1 second, got %d", a.HandshakeTimeout)
	}
	return nil
}

// Header returns the handshake headers, including the bearer token
func (a *ASRConfig) Header() http.Header {
	h := http.Header{}
	for k, v := range a.Headers {
		h.Set(k, v)
	}
	if a.AuthToken != "" {
		h.Set("Authorization", "Bearer "+a.AuthToken)
	}
	return h
}

// GetHandshakeTimeout returns the handshake timeout as a time.Duration
func (a *ASRConfig) GetHandshakeTimeout() time.Duration {
	return time.Duration(a.HandshakeTimeout) * time.Second
}

// Validate validates capture settings
func (c *CaptureConfig) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if c.Backend != "malgo" && c.Backend != "portaudio" {
		return fmt.Errorf("backend must be 'malgo' or 'portaudio', got '%s'", c.Backend)
	}
	if c.Source == "tone" && c.ToneFrequency <= 0 {
		return fmt.Errorf("tone_frequency must be positive, got %f", c.ToneFrequency)
	}
	if c.ToneSeconds < 0 {
		return fmt.Errorf("tone_seconds cannot be negative, got %f", c.ToneSeconds)
	}
	return nil
}

// Validate validates playback settings
func (p *PlaybackConfig) Validate() error {
	validOutputs := map[string]bool{"malgo": true, "oto": true, "portaudio": true}
	if !validOutputs[p.Output] {
		return fmt.Errorf("output must be one of [malgo, oto, portaudio], got '%s'", p.Output)
	}
	if p.SampleRate < 8000 || p.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", p.SampleRate)
	}
	if p.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative, got %d", p.Capacity)
	}
	if p.Policy != "drop-oldest" && p.Policy != "drop-newest" {
		return fmt.Errorf("policy must be 'drop-oldest' or 'drop-newest', got '%s'", p.Policy)
	}
	if p.Volume < 0 || p.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", p.Volume)
	}
	return nil
}

// Validate validates mock server settings
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.PartialEvery <= 0 {
		return fmt.Errorf("partial_every must be positive, got %f", s.PartialEvery)
	}
	if s.SegmentLength < s.PartialEvery {
		return fmt.Errorf("segment_length (%f) must not be shorter than partial_every (%f)",
			s.SegmentLength, s.PartialEvery)
	}
	return nil
}

// GetPartialEvery returns the partial interval as a time.Duration
func (s *ServerConfig) GetPartialEvery() time.Duration {
	return time.Duration(s.PartialEvery * float64(time.Second))
}

// GetSegmentLength returns the segment length as a time.Duration
func (s *ServerConfig) GetSegmentLength() time.Duration {
	return time.Duration(s.SegmentLength * float64(time.Second))
}

// Validate validates sink settings
func (s *SinkConfig) Validate() error {
	if s.RedisAddr != "" && s.RedisChannel == "" {
		return fmt.Errorf("redis_channel cannot be empty when redis_addr is set")
	}
	if s.RedisDB < 0 {
		return fmt.Errorf("redis_db cannot be negative, got %d", s.RedisDB)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	return nil
}
