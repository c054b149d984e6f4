package sweep

import (
	"time"

	"github.com/trackeco/gamecore/pkg/logger"
)

// QueueOption applies a configuration option to the InMemoryQueue.
type QueueOption func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending tasks.
func WithCapacity(capacity int) QueueOption {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WorkerOption applies a configuration option to the InMemoryWorker.
type WorkerOption func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) WorkerOption {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithWorkerLogger sets a custom logger for the worker.
func WithWorkerLogger(l logger.Logger) WorkerOption {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// RunnerOption applies a configuration option to the Runner.
type RunnerOption func(*Runner)

// WithInterval sets how often the periodic sweep loop runs.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithWorkerCount sets the number of concurrent sweep workers.
func WithWorkerCount(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workerCount = n
		}
	}
}

// WithQueue sets the task queue backing the pass.
func WithQueue(q Queue) RunnerOption {
	return func(r *Runner) {
		if q != nil {
			r.queue = q
		}
	}
}

// WithOffsetMinutes sets the fixed UTC offset anchoring day boundaries.
func WithOffsetMinutes(offset int) RunnerOption {
	return func(r *Runner) {
		r.offsetMinutes = offset
	}
}

// WithAtRiskLimit caps how many users a single pass evaluates.
// Zero or negative means no cap.
func WithAtRiskLimit(limit int) RunnerOption {
	return func(r *Runner) {
		r.atRiskLimit = limit
	}
}

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}
