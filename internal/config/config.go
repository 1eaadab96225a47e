// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory ingest queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recording workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the size of the event id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the session store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// PredictionWindow is how many recent events feed a live prediction.
	PredictionWindow int `koanf:"prediction_window"`
	// LiveIntervalMS is the push period of the live websocket feed.
	LiveIntervalMS int `koanf:"live_interval_ms"`
	// MaxWatchlistLimit caps GET /watchlist?limit.
	MaxWatchlistLimit int `koanf:"max_watchlist_limit"`

	// AllowedOrigins lists the CORS origins of the dashboards.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		EventQueueSize:    10_000,
		WorkerCount:       runtime.NumCPU() * 2,
		DedupeSize:        100_000,
		StoreDriver:       DriverMemory,
		SQLitePath:        "proctor.db",
		PredictionWindow:  10,
		LiveIntervalMS:    2000,
		MaxWatchlistLimit: 100,
		AllowedOrigins:    []string{"*"},
	}
}

// LiveInterval returns the live feed period.
func (c *Config) LiveInterval() time.Duration {
	return time.Duration(c.LiveIntervalMS) * time.Millisecond
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case !slices.Contains([]string{DriverMemory, DriverSQLite}, c.StoreDriver):
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case c.PredictionWindow < 1:
		return fmt.Errorf("%w: prediction_window must be at least 1", ErrInvalidConfig)
	case c.LiveIntervalMS < 100:
		return fmt.Errorf("%w: live_interval_ms must be at least 100", ErrInvalidConfig)
	case c.MaxWatchlistLimit <= 0:
		return fmt.Errorf("%w: max_watchlist_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
