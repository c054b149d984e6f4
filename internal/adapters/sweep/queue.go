// Package sweep schedules and runs the daily streak maintenance pass.
//
// A pass lists users whose streak is at risk, fans the user ids out over
// a bounded in-memory queue, and lets a fixed pool of workers evaluate
// each one. Worker count and queue capacity bound the load a pass can
// put on the store.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/trackeco/gamecore/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Task is one unit of sweep work: evaluate a single user at the pass
// reference time.
type Task struct {
	UserID string
	Now    time.Time

	stats *passStats
	wg    *sync.WaitGroup
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, t Task) bool

	// Dequeue returns a channel that receives tasks as they become
	// available. The channel closes when the queue is closed.
	Dequeue(ctx context.Context) <-chan Task

	// TryDequeue removes and returns one buffered task without blocking.
	// Returns false when the queue is empty or closed and drained.
	TryDequeue() (Task, bool)

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new tasks can be
	// enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...QueueOption) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a task to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop()
		return false
	}

	select {
	case q.tasks <- t:
		metrics.UpdateQueueSize(len(q.tasks))
		return true
	case <-ctx.Done():
		metrics.RecordQueueDrop()
		return false
	default:
		// Queue full; the caller decides how to account for the drop.
		metrics.RecordQueueDrop()
		return false
	}
}

// Dequeue returns a channel that receives tasks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		for t := range q.tasks {
			select {
			case out <- t:
				metrics.UpdateQueueSize(len(q.tasks))
			case <-ctx.Done():
				// Hand the task back to accounting before bailing out.
				t.finish()
				return
			}
		}
	}()
	return out
}

// TryDequeue removes and returns one buffered task without blocking.
func (q *InMemoryQueue) TryDequeue() (Task, bool) {
	select {
	case t, ok := <-q.tasks:
		if !ok {
			return Task{}, false
		}
		metrics.UpdateQueueSize(len(q.tasks))
		return t, true
	default:
		return Task{}, false
	}
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.tasks)
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// finish releases the pass bookkeeping for a task that will not be
// processed any further.
func (t Task) finish() {
	if t.wg != nil {
		t.wg.Done()
	}
}
