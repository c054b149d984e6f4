package sweep

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	streak "github.com/trackeco/gamecore/internal/domain/streak"
	"github.com/trackeco/gamecore/pkg/logger"
	"github.com/trackeco/gamecore/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Evaluator decides the sweep outcome for one at-risk user.
type Evaluator interface {
	EvaluateAtRisk(ctx context.Context, userID string, now time.Time) (streak.Decision, error)
}

// passStats accumulates per-pass counters across workers.
type passStats struct {
	evaluated atomic.Int64
	reminded  atomic.Int64
	resets    atomic.Int64
	failures  atomic.Int64
}

// Worker processes sweep tasks using the provided evaluator.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over the in-memory queue.
type InMemoryWorker struct {
	queue Queue
	eval  Evaluator
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, eval Evaluator, opts ...WorkerOption) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		eval:     eval,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("sweep"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	taskChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-taskChan:
			if !ok {
				return
			}
			w.processTask(ctx, task)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processTask evaluates a single at-risk user. A failure is isolated to
// its user: it is counted and logged, and the pass moves on.
func (w *InMemoryWorker) processTask(ctx context.Context, task Task) {
	defer task.finish()

	decision, err := w.eval.EvaluateAtRisk(ctx, task.UserID, task.Now)
	if err != nil {
		if task.stats != nil {
			task.stats.failures.Add(1)
		}
		metrics.RecordSweepUserFailure()
		w.logger.Error(ctx, "at-risk evaluation failed",
			logger.String("user_id", task.UserID),
			logger.Error(err),
		)
		return
	}

	if task.stats != nil {
		task.stats.evaluated.Add(1)
		switch decision {
		case streak.ReminderDue:
			task.stats.reminded.Add(1)
		case streak.Reset:
			task.stats.resets.Add(1)
		}
	}
}

// Pool manages multiple sweep workers over a shared queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, eval Evaluator) *Pool {
	if workerCount < 1 {
		workerCount = min(defaultWorkerCount, runtime.NumCPU())
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("sweep-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			eval,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
