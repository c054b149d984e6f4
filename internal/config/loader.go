package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/trackeco/gamecore/internal/domain/timewindow"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if GAMECORE_CONFIG is set
//  3. env (prefix GAMECORE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("GAMECORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: GAMECORE_ADDR, GAMECORE_SWEEP_INTERVAL, ...
	// Keys keep their underscores to match the koanf tags on the struct.
	envProvider := env.Provider("GAMECORE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "gamecore_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("%w: default_page_size must be positive", ErrInvalidConfig)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("%w: max_page_size must be at least default_page_size", ErrInvalidConfig)
	}
	if c.TimezoneOffsetMinutes <= -24*60 || c.TimezoneOffsetMinutes >= 24*60 {
		return fmt.Errorf("%w: timezone_offset_minutes out of range", ErrInvalidConfig)
	}
	if _, _, err := timewindow.ParseClock(c.ReminderCutoff); err != nil {
		return fmt.Errorf("%w: reminder_cutoff: %w", ErrInvalidConfig, err)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidConfig)
	}
	if c.SweepWorkerCount < 1 {
		return fmt.Errorf("%w: sweep_worker_count must be positive", ErrInvalidConfig)
	}
	if c.SweepQueueSize < 1 {
		return fmt.Errorf("%w: sweep_queue_size must be positive", ErrInvalidConfig)
	}
	if c.ReminderGuardSize < 1 {
		return fmt.Errorf("%w: reminder_guard_size must be positive", ErrInvalidConfig)
	}
	return nil
}
