// Package config loads the server's runtime configuration from the
// environment.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envVarListenAddr      = "SERVER5_LISTEN_ADDR"
	envVarLogFormat       = "SERVER5_LOG_FORMAT"
	envVarLogLevel        = "SERVER5_LOG_LEVEL"
	envVarShutdownTimeout = "SERVER5_SHUTDOWN_TIMEOUT"
	envVarDatabasePath    = "SERVER5_DB_PATH"

	// Relay core knobs.
	envVarRateLimitMax        = "RATE_LIMIT_MAX"
	envVarRateLimitWindow     = "RATE_LIMIT_WINDOW"
	envVarRateLimitSweepEvery = "RATE_LIMIT_SWEEP_INTERVAL"
	envVarMaxMessageBytes     = "MAX_SIGNALING_MESSAGE_BYTES"

	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultDatabasePath    = "server5.db"
	DefaultRateLimitMax    = 20
	DefaultRateLimitWindow = time.Minute
	DefaultRateLimitSweep  = 10 * time.Minute
	DefaultMaxMessageBytes = 64 * 1024
)

type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration

	LogFormat LogFormat
	LogLevel  slog.Level

	// DatabasePath is the SQLite file backing the address directory.
	DatabasePath string

	// RateLimitMax admitted operations per origin per RateLimitWindow.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// RateLimitSweepInterval controls how often stale rate-limit windows
	// are dropped. Zero disables the sweep.
	RateLimitSweepInterval time.Duration

	MaxSignalingMessageBytes int64
}

// Load reads configuration from the process environment. args exists so
// `-h`/`-help` behave sensibly; there are no flags.
func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	fs := flag.NewFlagSet("server5", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:   envOrDefault(lookup, envVarListenAddr, DefaultListenAddr),
		DatabasePath: envOrDefault(lookup, envVarDatabasePath, DefaultDatabasePath),
	}

	var err error
	cfg.ShutdownTimeout, err = envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitWindow, err = envDurationOrDefault(lookup, envVarRateLimitWindow, DefaultRateLimitWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitSweepInterval, err = envDurationOrDefault(lookup, envVarRateLimitSweepEvery, DefaultRateLimitSweep)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitMax, err = envIntOrDefault(lookup, envVarRateLimitMax, DefaultRateLimitMax)
	if err != nil {
		return Config{}, err
	}
	maxBytes, err := envIntOrDefault(lookup, envVarMaxMessageBytes, DefaultMaxMessageBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSignalingMessageBytes = int64(maxBytes)

	cfg.LogFormat, err = parseLogFormat(envOrDefault(lookup, envVarLogFormat, string(LogFormatJSON)))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel, err = parseLogLevel(envOrDefault(lookup, envVarLogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	if cfg.ListenAddr == "" {
		return Config{}, fmt.Errorf("%s must not be empty", envVarListenAddr)
	}
	if cfg.RateLimitMax < 1 {
		return Config{}, fmt.Errorf("%s must be >= 1", envVarRateLimitMax)
	}
	if cfg.RateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", envVarRateLimitWindow)
	}
	if cfg.MaxSignalingMessageBytes <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", envVarMaxMessageBytes)
	}

	return cfg, nil
}

// NewLogger builds the process logger per the configured format and level.
func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	switch cfg.LogFormat {
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case LogFormatText:
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(raw) {
	case "json":
		return LogFormatJSON, nil
	case "text":
		return LogFormatText, nil
	default:
		return "", fmt.Errorf("invalid %s %q (expected json or text)", envVarLogFormat, raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid %s %q", envVarLogLevel, raw)
	}
}
