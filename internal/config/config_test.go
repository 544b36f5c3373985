// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers defaults, YAML overrides, environment overrides and .env files
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16000, cfg.ASR.SampleRate)
	assert.Equal(t, "ws://localhost:6006/asr", cfg.ASR.Endpoint)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asrstream.yaml")
	yaml := `
asr:
  endpoint: ws://recognizer:9000/asr
  headers:
    X-Model: small
playback:
  capacity: 48000
  policy: drop-newest
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://recognizer:9000/asr", cfg.ASR.Endpoint)
	assert.Equal(t, 16000, cfg.ASR.SampleRate, "unset fields keep defaults")
	assert.Equal(t, 48000, cfg.Playback.Capacity)
	assert.Equal(t, "drop-newest", cfg.Playback.Policy)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "small", cfg.ASR.Header().Get("X-Model"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("asr: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("asr:\n  sample_rate: 100\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asr config: sample_rate")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ASR_ENDPOINT":    "wss://asr.example.com/asr",
		"ASR_AUTH_TOKEN":  "secret",
		"ASR_SAMPLE_RATE": "8000",
		"ASR_REDIS_ADDR":  "localhost:6379",
		"ASR_LOG_LEVEL":   "warn",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "wss://asr.example.com/asr", cfg.ASR.Endpoint)
	assert.Equal(t, 8000, cfg.ASR.SampleRate)
	assert.Equal(t, "localhost:6379", cfg.Sink.RedisAddr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "Bearer secret", cfg.ASR.Header().Get("Authorization"))
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvInvalidNumber(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "ASR_SAMPLE_RATE" {
			return "fast", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASR_SAMPLE_RATE")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ASRSTREAM_TEST_DOTENV=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ASRSTREAM_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), path))
	assert.Equal(t, "from-file", os.Getenv("ASRSTREAM_TEST_DOTENV"))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"empty endpoint", func(c *Config) { c.ASR.Endpoint = "" }, "endpoint cannot be empty"},
		{"zero frame queue", func(c *Config) { c.ASR.FrameQueue = 0 }, "frame_queue"},
		{"unknown backend", func(c *Config) { c.Capture.Backend = "alsa" }, "backend"},
		{"tone without frequency", func(c *Config) { c.Capture.Source = "tone"; c.Capture.ToneFrequency = 0 }, "tone_frequency"},
		{"unknown output", func(c *Config) { c.Playback.Output = "pulse" }, "output must be"},
		{"negative capacity", func(c *Config) { c.Playback.Capacity = -1 }, "capacity"},
		{"bad policy", func(c *Config) { c.Playback.Policy = "block" }, "policy"},
		{"volume too high", func(c *Config) { c.Playback.Volume = 101 }, "volume"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"segment shorter than partial", func(c *Config) { c.Server.SegmentLength = 0.1 }, "segment_length"},
		{"redis without channel", func(c *Config) { c.Sink.RedisAddr = "x:6379"; c.Sink.RedisChannel = "" }, "redis_channel"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "level must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 500*time.Millisecond, cfg.Server.GetPartialEvery())
	assert.Equal(t, 5*time.Second, cfg.Server.GetSegmentLength())
	assert.Equal(t, 10*time.Second, cfg.ASR.GetHandshakeTimeout())
}
