// Package config provides configuration types and defaults for livery.
package config

import (
	"fmt"
	"net/url"
	"time"

	"livery/internal/poll"
	"livery/internal/retry"
	"livery/internal/tracing"
)

// Config holds all configuration options for livery.
type Config struct {
	// Endpoint is the dispatch backend URL.
	Endpoint string `mapstructure:"endpoint"`

	// UserAgent is sent on every request and drives device detection
	// server-side. Defaults to a desktop agent string.
	UserAgent string `mapstructure:"user_agent"`

	// StateDir overrides where the job state database lives. Accepts a
	// project directory or a .livery directory.
	StateDir string `mapstructure:"state_dir"`

	// AutoRefresh reloads the store when another process writes the
	// state database.
	AutoRefresh bool `mapstructure:"auto_refresh"`

	Poll     PollConfig     `mapstructure:"poll"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Location LocationConfig `mapstructure:"location"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  tracing.Config `mapstructure:"tracing"`
}

// PollConfig holds the background polling cadence.
type PollConfig struct {
	// Freshness is the UI heartbeat period. Default 9s.
	Freshness time.Duration `mapstructure:"freshness"`

	// Liveness is the session check period. Default 50s.
	Liveness time.Duration `mapstructure:"liveness"`
}

// RetryConfig holds the authentication retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of AUTH calls. Default 3.
	MaxAttempts int `mapstructure:"max_attempts"`

	// Delay is the fixed pause between attempts. Default 3s.
	Delay time.Duration `mapstructure:"delay"`
}

// LocationConfig holds the static position reported with every call.
// A future GPS source replaces this; today the values come from config.
type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Speed     float64 `mapstructure:"speed"`
	Heading   float64 `mapstructure:"heading"`
}

// LogConfig holds file logging options.
type LogConfig struct {
	// Enabled turns the category logger on. Default false.
	Enabled bool `mapstructure:"enabled"`

	// Path is the log file. Empty means a file under the state dir.
	Path string `mapstructure:"path"`

	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Endpoint:    "",
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		AutoRefresh: true,
		Poll: PollConfig{
			Freshness: poll.DefaultFreshness,
			Liveness:  poll.DefaultLiveness,
		},
		Retry: RetryConfig{
			MaxAttempts: retry.DefaultMaxAttempts,
			Delay:       retry.DefaultDelay,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks the configuration for errors. Empty values fall back to
// defaults and are not errors; present-but-wrong values are.
func Validate(cfg Config) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint must be an absolute URL, got %q", cfg.Endpoint)
	}

	if err := ValidatePoll(cfg.Poll); err != nil {
		return err
	}
	if err := ValidateRetry(cfg.Retry); err != nil {
		return err
	}
	if err := ValidateLocation(cfg.Location); err != nil {
		return err
	}
	if err := ValidateLog(cfg.Log); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidatePoll checks the polling cadence for errors.
func ValidatePoll(p PollConfig) error {
	if p.Freshness < 0 {
		return fmt.Errorf("poll.freshness must not be negative, got %v", p.Freshness)
	}
	if p.Liveness < 0 {
		return fmt.Errorf("poll.liveness must not be negative, got %v", p.Liveness)
	}
	return nil
}

// ValidateRetry checks the retry policy for errors.
func ValidateRetry(r RetryConfig) error {
	if r.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative, got %d", r.MaxAttempts)
	}
	if r.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative, got %v", r.Delay)
	}
	return nil
}

// ValidateLocation checks the static position for errors.
func ValidateLocation(l LocationConfig) error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("location.latitude must be between -90 and 90, got %v", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("location.longitude must be between -180 and 180, got %v", l.Longitude)
	}
	return nil
}

// ValidateLog checks logging options for errors.
func ValidateLog(l LogConfig) error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", l.Level)
	}
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	switch t.Exporter {
	case "", "none", "file", "stdout", "otlp":
		return nil
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}
}
