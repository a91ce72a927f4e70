// Package config loads console settings from an optional YAML file, then
// applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full console configuration.
type Config struct {
	Port           int           `yaml:"port"`
	GatewayURL     string        `yaml:"gateway_url"`
	DatabaseURL    string        `yaml:"database_url"` // SQLite DSN for the generation journal; empty keeps it in memory
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"` // gateway requests per second; 0 disables
	RateBurst      int           `yaml:"rate_burst"`
	Poll           PollConfig    `yaml:"poll"`
	Sessions       SessionConfig `yaml:"sessions"`
	SeedDemo       bool          `yaml:"seed_demo"`
}

// PollConfig bounds generation polling.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// SessionConfig controls editing session lifetime.
type SessionConfig struct {
	MaxAge      time.Duration `yaml:"max_age"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Cleanup     string        `yaml:"cleanup"` // cron spec
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:           8080,
		GatewayURL:     "http://localhost:5000",
		LogLevel:       "info",
		RequestTimeout: 30 * time.Second,
		RateBurst:      5,
		Poll: PollConfig{
			Interval:    5 * time.Second,
			MaxAttempts: 36,
		},
		Sessions: SessionConfig{
			MaxAge:      8 * time.Hour,
			IdleTimeout: 30 * time.Minute,
			Cleanup:     "@every 1m",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PORT, GATEWAY_URL, DATABASE_URL,
// LOG_LEVEL, REQUEST_TIMEOUT, POLL_INTERVAL and POLL_ATTEMPTS.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	num("PORT", &c.Port)
	str("GATEWAY_URL", &c.GatewayURL)
	str("DATABASE_URL", &c.DatabaseURL)
	str("LOG_LEVEL", &c.LogLevel)
	dur("REQUEST_TIMEOUT", &c.RequestTimeout)
	dur("POLL_INTERVAL", &c.Poll.Interval)
	num("POLL_ATTEMPTS", &c.Poll.MaxAttempts)
	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if u, err := url.Parse(c.GatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("gateway_url %q is not an absolute URL", c.GatewayURL))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit must not be negative"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be positive"))
	}
	if c.Poll.MaxAttempts <= 0 {
		errs = append(errs, errors.New("poll.max_attempts must be positive"))
	}
	if c.Sessions.MaxAge <= 0 || c.Sessions.IdleTimeout <= 0 {
		errs = append(errs, errors.New("sessions.max_age and sessions.idle_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
