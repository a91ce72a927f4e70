package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 36, cfg.Poll.MaxAttempts)
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "GATEWAY_URL", "DATABASE_URL", "LOG_LEVEL", "REQUEST_TIMEOUT", "POLL_INTERVAL", "POLL_ATTEMPTS"} {
		t.Setenv(k, "")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
gateway_url: https://gateway.internal
request_timeout: 10s
rate_limit: 2.5
poll:
  interval: 2s
sessions:
  idle_timeout: 5m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://gateway.internal", cfg.GatewayURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 36, cfg.Poll.MaxAttempts, "unset keys keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 8*time.Hour, cfg.Sessions.MaxAge)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"PORT":            "7000",
		"GATEWAY_URL":     "http://backend:5000",
		"DATABASE_URL":    "file:journal.db",
		"LOG_LEVEL":       "debug",
		"REQUEST_TIMEOUT": "45s",
		"POLL_INTERVAL":   "1s",
		"POLL_ATTEMPTS":   "10",
	}))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "http://backend:5000", cfg.GatewayURL)
	assert.Equal(t, "file:journal.db", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, 10, cfg.Poll.MaxAttempts)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{"PORT": "eighty", "POLL_INTERVAL": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
	assert.Equal(t, 8080, cfg.Port, "invalid values leave the field untouched")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.GatewayURL = "not a url"
	cfg.LogLevel = "chatty"
	cfg.Poll.MaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"port", "gateway_url", "log level", "max_attempts"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
