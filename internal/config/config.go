// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped via this package's error kinds.
package config

import "time"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DefaultPageSize is used when a leaderboard request omits page_size.
	DefaultPageSize int `koanf:"default_page_size"`

	// MaxPageSize caps GET /leaderboard?page_size.
	MaxPageSize int `koanf:"max_page_size"`

	// TimezoneOffsetMinutes anchors local day boundaries as a fixed UTC
	// offset in minutes. 420 is WIB (UTC+7).
	TimezoneOffsetMinutes int `koanf:"timezone_offset_minutes"`

	// ReminderCutoff is the local wall-clock time, "HH:MM", after which
	// an at-risk streak resets instead of getting a reminder.
	ReminderCutoff string `koanf:"reminder_cutoff"`

	// SweepInterval sets how often the streak maintenance pass runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// SweepWorkerCount sets the number of concurrent sweep workers.
	SweepWorkerCount int `koanf:"sweep_worker_count"`

	// SweepQueueSize bounds the in-memory sweep task queue.
	SweepQueueSize int `koanf:"sweep_queue_size"`

	// SweepAtRiskLimit caps how many users one pass evaluates.
	// Zero means no cap.
	SweepAtRiskLimit int `koanf:"sweep_at_risk_limit"`

	// ReminderGuardSize bounds the once-per-day reminder dedupe cache.
	ReminderGuardSize int `koanf:"reminder_guard_size"`

	// StoreSeed seeds the in-memory store's balancing priorities.
	// Zero means a random seed.
	StoreSeed uint64 `koanf:"store_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		DefaultPageSize:       25,
		MaxPageSize:           100,
		TimezoneOffsetMinutes: 7 * 60,
		ReminderCutoff:        "20:00",
		SweepInterval:         15 * time.Minute,
		SweepWorkerCount:      4,
		SweepQueueSize:        10_000,
		ReminderGuardSize:     100_000,
	}
}
