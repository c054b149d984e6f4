package service

import (
	"time"

	streak "github.com/trackeco/gamecore/internal/domain/streak"
	"github.com/trackeco/gamecore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDefaultPageSize sets the page size used when a request omits one.
func WithDefaultPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxPageSize caps the leaderboard page size.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithOffsetMinutes sets the fixed UTC offset anchoring day boundaries.
func WithOffsetMinutes(offset int) Option {
	return func(s *Service) {
		s.offsetMinutes = offset
	}
}

// WithCutoff sets the local wall-clock reminder cutoff.
func WithCutoff(hour, minute int) Option {
	return func(s *Service) {
		if hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
			s.cutoffHour = hour
			s.cutoffMinute = minute
		}
	}
}

// WithSweepInterval sets how often the maintenance pass runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithSweepWorkerCount sets the number of concurrent sweep workers.
func WithSweepWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepWorkers = n
		}
	}
}

// WithSweepQueueSize bounds the in-memory sweep task queue.
func WithSweepQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepQueue = n
		}
	}
}

// WithSweepAtRiskLimit caps how many users one pass evaluates.
func WithSweepAtRiskLimit(n int) Option {
	return func(s *Service) {
		s.atRiskLimit = n
	}
}

// WithGuardSize bounds the once-per-day reminder dedupe cache.
func WithGuardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.guardSize = n
		}
	}
}

// WithStoreSeed seeds the in-memory store's balancing priorities.
func WithStoreSeed(seed uint64) Option {
	return func(s *Service) {
		s.storeSeed = seed
	}
}

// WithNotifier sets the reminder notifier.
func WithNotifier(n streak.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
