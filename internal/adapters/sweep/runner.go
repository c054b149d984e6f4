package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	"github.com/trackeco/gamecore/internal/domain/timewindow"
	"github.com/trackeco/gamecore/pkg/logger"
	"github.com/trackeco/gamecore/pkg/metrics"
)

// Default runner configuration constants.
const (
	defaultInterval = 15 * time.Minute
)

// Stats summarizes one completed sweep pass.
type Stats struct {
	Evaluated int `json:"evaluated"`
	Reminded  int `json:"reminded"`
	Resets    int `json:"resets"`
	Failures  int `json:"failures"`
}

// Runner periodically lists at-risk users and fans them out over the
// worker pool. A user is at risk when their streak is active but their
// last qualifying activity predates the start of the current local day.
type Runner struct {
	store         repository.Store
	queue         Queue
	pool          *Pool
	interval      time.Duration
	offsetMinutes int
	atRiskLimit   int
	workerCount   int
	log           logger.Logger

	mu      sync.Mutex
	last    Stats
	lastRun time.Time
	ran     bool
}

// NewRunner constructs a sweep runner over the given store and evaluator.
func NewRunner(store repository.Store, eval Evaluator, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:         store,
		interval:      defaultInterval,
		offsetMinutes: timewindow.WIBOffsetMinutes,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.queue == nil {
		r.queue = NewInMemoryQueue()
	}
	if r.log == nil {
		r.log = logger.Get().Named("sweep-runner")
	}
	r.pool = NewPool(r.workerCount, r.queue, eval)
	return r
}

// Start launches the worker pool and the periodic sweep loop, blocking
// until ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	r.pool.Start(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := r.RunOnce(ctx, time.Now())
			if err != nil {
				r.log.Error(ctx, "sweep pass failed", logger.Error(err))
				continue
			}
			r.log.Info(ctx, "sweep pass complete",
				logger.Int("evaluated", stats.Evaluated),
				logger.Int("reminded", stats.Reminded),
				logger.Int("resets", stats.Resets),
				logger.Int("failures", stats.Failures),
			)
		}
	}
}

// RunOnce executes a single sweep pass at the given reference time and
// waits for every scheduled user to be evaluated. Passes are idempotent:
// a user already reminded or reset today produces no further effect.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (Stats, error) {
	if r.queue.IsClosed() {
		return Stats{}, ErrClosed
	}

	start := time.Now()
	startOfToday := timewindow.StartOfDay(now, r.offsetMinutes)

	ids, err := r.store.AtRisk(ctx, startOfToday, r.atRiskLimit)
	if err != nil {
		return Stats{}, fmt.Errorf("list at-risk users: %w", err)
	}
	metrics.UpdateSweepAtRisk(len(ids))

	stats := &passStats{}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		task := Task{UserID: id, Now: now, stats: stats, wg: &wg}
		if !r.queue.Enqueue(ctx, task) {
			wg.Done()
			stats.failures.Add(1)
		}
	}

	// Cancellation stops the workers, stranding whatever is still
	// buffered; hand those tasks back so the waiter always exits, then
	// give up on the pass.
	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		for {
			t, ok := r.queue.TryDequeue()
			if !ok {
				break
			}
			t.finish()
		}
		<-drained
		return Stats{}, fmt.Errorf("sweep pass interrupted: %w", ctx.Err())
	}

	out := Stats{
		Evaluated: int(stats.evaluated.Load()),
		Reminded:  int(stats.reminded.Load()),
		Resets:    int(stats.resets.Load()),
		Failures:  int(stats.failures.Load()),
	}

	metrics.RecordSweepPass(float64(time.Since(start).Milliseconds()))

	r.mu.Lock()
	r.last = out
	r.lastRun = now
	r.ran = true
	r.mu.Unlock()

	return out, nil
}

// LastPass returns the stats and reference time of the most recent pass.
// The boolean is false when no pass has completed yet.
func (r *Runner) LastPass() (Stats, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastRun, r.ran
}

// Shutdown drains the queue and stops the worker pool.
func (r *Runner) Shutdown(ctx context.Context) error {
	return r.pool.Shutdown(ctx)
}
