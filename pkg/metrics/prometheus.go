// Package metrics provides Prometheus metrics for the gamification core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Leaderboard metrics
	pagesServed  prometheus.Counter
	cursorErrors prometheus.Counter
	totalMembers prometheus.Gauge

	// Activity and streak metrics
	activityEvents      prometheus.Counter
	streakExtended      prometheus.Counter
	streakRestarted     prometheus.Counter
	streakResets        prometheus.Counter
	remindersSent       prometheus.Counter
	invariantViolations prometheus.Counter

	// Sweep metrics
	sweepPasses       prometheus.Counter
	sweepDuration     prometheus.Histogram
	sweepAtRisk       prometheus.Gauge
	sweepUserFailures prometheus.Counter

	// Store metrics
	storeOpLatency *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec

	// Sweep queue / worker pool metrics
	queueSize   prometheus.Gauge
	queueDrops  prometheus.Counter
	workerCount prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gamecore",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.pagesServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_pages_served_total",
		Help:      "Total number of leaderboard pages served.",
	})
	m.cursorErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_cursor_errors_total",
		Help:      "Total number of malformed pagination cursors rejected.",
	})
	m.totalMembers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_members",
		Help:      "Current number of users tracked in the leaderboard.",
	})

	m.activityEvents = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "activity_events_total",
		Help:      "Total number of qualifying activity events processed.",
	})
	m.streakExtended = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_extended_total",
		Help:      "Total number of streak continuations.",
	})
	m.streakRestarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_restarted_total",
		Help:      "Total number of streaks restarted after a lapse.",
	})
	m.streakResets = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_resets_total",
		Help:      "Total number of streaks reset by the sweep.",
	})
	m.remindersSent = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_reminders_sent_total",
		Help:      "Total number of streak reminders dispatched.",
	})
	m.invariantViolations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_invariant_violations_total",
		Help:      "Activity events with timestamps older than the last recorded day.",
	})

	m.sweepPasses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_passes_total",
		Help:      "Total number of completed sweep passes.",
	})
	m.sweepDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_duration_ms",
		Help:      "Duration of sweep passes in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.sweepAtRisk = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_at_risk_users",
		Help:      "Number of at-risk users evaluated by the last sweep pass.",
	})
	m.sweepUserFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_user_failures_total",
		Help:      "Per-user sweep evaluations that failed and will be retried.",
	})

	m.storeOpLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_op_duration_ms",
		Help:      "Latency of ranked store operations in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})
	m.storeErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of ranked store operation failures.",
	}, []string{"op"})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_queue_size",
		Help:      "Current number of queued sweep tasks.",
	})
	m.queueDrops = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_queue_drops_total",
		Help:      "Sweep tasks dropped because the queue was full.",
	})
	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_workers",
		Help:      "Number of sweep workers in the pool.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines.",
	})
}

// Leaderboard helpers.

// RecordPageServed increments the served-pages counter.
func RecordPageServed() {
	if globalManager != nil && globalManager.enabled {
		globalManager.pagesServed.Inc()
	}
}

// RecordCursorError increments the rejected-cursor counter.
func RecordCursorError() {
	if globalManager != nil && globalManager.enabled {
		globalManager.cursorErrors.Inc()
	}
}

// UpdateTotalMembers sets the tracked-member gauge.
func UpdateTotalMembers(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.totalMembers.Set(float64(count))
	}
}

// Activity and streak helpers.

// RecordActivityEvent increments the processed-activity counter.
func RecordActivityEvent() {
	if globalManager != nil && globalManager.enabled {
		globalManager.activityEvents.Inc()
	}
}

// RecordStreakExtended increments the streak-continuation counter.
func RecordStreakExtended() {
	if globalManager != nil && globalManager.enabled {
		globalManager.streakExtended.Inc()
	}
}

// RecordStreakRestarted increments the streak-restart counter.
func RecordStreakRestarted() {
	if globalManager != nil && globalManager.enabled {
		globalManager.streakRestarted.Inc()
	}
}

// RecordStreakReset increments the sweep-reset counter.
func RecordStreakReset() {
	if globalManager != nil && globalManager.enabled {
		globalManager.streakResets.Inc()
	}
}

// RecordReminderSent increments the dispatched-reminder counter.
func RecordReminderSent() {
	if globalManager != nil && globalManager.enabled {
		globalManager.remindersSent.Inc()
	}
}

// RecordInvariantViolation increments the clock-skew counter.
func RecordInvariantViolation() {
	if globalManager != nil && globalManager.enabled {
		globalManager.invariantViolations.Inc()
	}
}

// Sweep helpers.

// RecordSweepPass records a completed sweep pass with its duration.
func RecordSweepPass(durationMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.sweepPasses.Inc()
		globalManager.sweepDuration.Observe(durationMs)
	}
}

// UpdateSweepAtRisk sets the at-risk user gauge for the last pass.
func UpdateSweepAtRisk(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.sweepAtRisk.Set(float64(count))
	}
}

// RecordSweepUserFailure increments the isolated per-user failure counter.
func RecordSweepUserFailure() {
	if globalManager != nil && globalManager.enabled {
		globalManager.sweepUserFailures.Inc()
	}
}

// Store helpers.

// RecordStoreOpLatency records the latency of a store operation.
func RecordStoreOpLatency(op string, latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.storeOpLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// RecordStoreError increments the failure counter for a store operation.
func RecordStoreError(op string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// Queue and worker helpers.

// UpdateQueueSize sets the sweep queue size gauge.
func UpdateQueueSize(size int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// RecordQueueDrop increments the dropped-task counter.
func RecordQueueDrop() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueDrops.Inc()
	}
}

// UpdateWorkerCount sets the sweep worker gauge.
func UpdateWorkerCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// HTTP helpers.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// System helpers.

// UpdateSystemMemoryUsage sets the heap-allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom Prometheus registry used for exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
