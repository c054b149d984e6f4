// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	sweep "github.com/trackeco/gamecore/internal/adapters/sweep"
	"github.com/trackeco/gamecore/internal/domain/dedupe"
	"github.com/trackeco/gamecore/internal/domain/leaderboard"
	streak "github.com/trackeco/gamecore/internal/domain/streak"
	"github.com/trackeco/gamecore/internal/domain/timewindow"
	"github.com/trackeco/gamecore/internal/domain/types"
	"github.com/trackeco/gamecore/pkg/logger"
	"github.com/trackeco/gamecore/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultPageSize    = 25
	defaultMaxPageSize = 100
)

// Service wires the ranked store, the leaderboard and streak engines,
// and the sweep runner behind one API surface.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	leaderboard *leaderboard.Engine
	streaks     *streak.Engine
	guard       dedupe.Guard
	runner      *sweep.Runner
	notifier    streak.Notifier

	// Configuration
	pageSize      int
	maxPageSize   int
	offsetMinutes int
	cutoffHour    int
	cutoffMinute  int
	sweepInterval time.Duration
	sweepWorkers  int
	sweepQueue    int
	atRiskLimit   int
	guardSize     int
	storeSeed     uint64

	// State
	started     bool
	stopSweeper context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		pageSize:      defaultPageSize,
		maxPageSize:   defaultMaxPageSize,
		offsetMinutes: timewindow.WIBOffsetMinutes,
		cutoffHour:    20,
		cutoffMinute:  0,
		sweepInterval: 15 * time.Minute,
		sweepWorkers:  4,
		sweepQueue:    10_000,
		guardSize:     100_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting gamification service...")

	storeOpts := []repository.Option{}
	if s.storeSeed != 0 {
		storeOpts = append(storeOpts, repository.WithSeed(s.storeSeed))
	}
	s.store = repository.NewTreapStore(storeOpts...)
	s.logger.Info(ctx, "using treap store")

	s.guard = dedupe.NewInMemoryGuard(
		dedupe.WithMaxSize(s.guardSize),
	)
	if s.notifier == nil {
		s.notifier = &logNotifier{log: s.logger.Named("notifier")}
	}

	s.streaks = streak.New(s.store,
		streak.WithNotifier(s.notifier),
		streak.WithReminderGuard(s.guard),
		streak.WithOffsetMinutes(s.offsetMinutes),
		streak.WithCutoff(s.cutoffHour, s.cutoffMinute),
	)
	s.leaderboard = leaderboard.New(s.store,
		leaderboard.WithMaxPageSize(s.maxPageSize),
	)
	s.runner = sweep.NewRunner(s.store, s.streaks,
		sweep.WithInterval(s.sweepInterval),
		sweep.WithWorkerCount(s.sweepWorkers),
		sweep.WithQueue(sweep.NewInMemoryQueue(sweep.WithCapacity(s.sweepQueue))),
		sweep.WithOffsetMinutes(s.offsetMinutes),
		sweep.WithAtRiskLimit(s.atRiskLimit),
	)

	sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopSweeper = cancel
	go s.runner.Start(sweepCtx)

	s.started = true
	s.logger.Info(ctx, "gamification service started",
		logger.Int("sweep_workers", s.sweepWorkers),
		logger.Int("max_page_size", s.maxPageSize),
		logger.Int("timezone_offset_minutes", s.offsetMinutes),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping gamification service...")

	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	if s.runner != nil {
		_ = s.runner.Shutdown(ctx)
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "gamification service stopped")
}

// GetPage returns one leaderboard page. A zero pageSize selects the
// configured default; a malformed cursor or out-of-range pageSize is an
// invalid-argument error, never an empty page.
func (s *Service) GetPage(ctx context.Context, cursorToken string, pageSize int) (types.RankPage, error) {
	if pageSize == 0 {
		pageSize = s.pageSize
	}
	return s.leaderboard.GetPage(ctx, cursorToken, pageSize)
}

// RecordActivity applies one qualifying activity event for a user.
// A zero timestamp means now.
func (s *Service) RecordActivity(ctx context.Context, userID string, points int64, at time.Time) (streak.ActivityResult, error) {
	if strings.TrimSpace(userID) == "" {
		return streak.ActivityResult{}, fmt.Errorf("%w: user id must not be empty", ErrInvalidArgument)
	}
	if points <= 0 {
		return streak.ActivityResult{}, fmt.Errorf("%w: points must be positive", ErrInvalidArgument)
	}
	if at.IsZero() {
		at = time.Now()
	}
	return s.streaks.OnActivity(ctx, userID, points, at)
}

// Rank returns the current rank, points, and streak fields for a user.
// Returns repository.ErrNotFound for an unknown user.
func (s *Service) Rank(ctx context.Context, userID string) (types.Standing, error) {
	member, err := s.store.Member(ctx, userID)
	if err != nil {
		return types.Standing{}, err
	}
	ahead, err := s.store.CountAhead(ctx, member.Points, member.ID)
	if err != nil {
		return types.Standing{}, err
	}
	st, err := s.store.StreakState(ctx, userID)
	if err != nil {
		return types.Standing{}, err
	}
	return types.Standing{
		Entry: types.Entry{
			Rank:   ahead,
			UserID: member.ID,
			Points: member.Points,
		},
		CurrentStreak: st.Current,
		MaxStreak:     st.Max,
	}, nil
}

// RunSweepOnce triggers a single maintenance pass immediately.
func (s *Service) RunSweepOnce(ctx context.Context) (sweep.Stats, error) {
	return s.runner.RunOnce(ctx, time.Now())
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"sweep_workers": s.sweepWorkers,
		"max_page_size": s.maxPageSize,
	}

	if s.started {
		ctx := context.Background()
		total := s.store.Count(ctx)
		stats["total_members"] = total
		metrics.UpdateTotalMembers(total)

		if last, at, ok := s.runner.LastPass(); ok {
			stats["last_sweep"] = map[string]interface{}{
				"at":        at.UTC().Format(time.RFC3339),
				"evaluated": last.Evaluated,
				"reminded":  last.Reminded,
				"resets":    last.Resets,
				"failures":  last.Failures,
			}
		}
	}

	return stats
}

// logNotifier is the default reminder sink: it records the reminder in
// the service log. Deployments with a real push channel supply their
// own Notifier.
type logNotifier struct {
	log logger.Logger
}

func (n *logNotifier) Remind(ctx context.Context, userID, dispatchID string, streakDays int) error {
	n.log.Info(ctx, "streak reminder",
		logger.String("user_id", userID),
		logger.String("dispatch_id", dispatchID),
		logger.Int("streak", streakDays),
	)
	return nil
}
