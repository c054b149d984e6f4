// Package streak implements the per-user daily streak state machine.
//
// A user's streak advances at most once per local calendar day (WIB in
// production). Real-time activity events extend, restart, or refresh the
// streak; a scheduled sweep decides reminders and resets for users who
// have gone quiet. Both paths read the streak fields immediately before
// writing, so re-running a pass in the same day cannot double-apply a
// transition.
package streak

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	"github.com/trackeco/gamecore/internal/domain/dedupe"
	"github.com/trackeco/gamecore/internal/domain/timewindow"
	"github.com/trackeco/gamecore/pkg/logger"
	"github.com/trackeco/gamecore/pkg/metrics"
)

// Decision is the outcome of one streak evaluation.
type Decision int

// Decisions for activity events and sweep evaluations.
const (
	NoAction Decision = iota
	AlreadyCounted
	Extended
	Restarted
	ReminderDue
	Reset
)

// String returns the wire-friendly name of a decision.
func (d Decision) String() string {
	switch d {
	case NoAction:
		return "no_action"
	case AlreadyCounted:
		return "already_counted"
	case Extended:
		return "extended"
	case Restarted:
		return "restarted"
	case ReminderDue:
		return "reminder_due"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Notifier dispatches streak reminders. The dispatch id is unique per
// attempt, so downstream channels can dedupe redeliveries and logs can
// be correlated with the delivery. Dispatch is fire-and-forget from the
// engine's perspective: failures are logged and retried on the next
// sweep cycle, never propagated.
type Notifier interface {
	Remind(ctx context.Context, userID, dispatchID string, streak int) error
}

// ActivityResult reports the effect of one qualifying activity event.
type ActivityResult struct {
	Decision Decision
	Streak   int
	Points   int64
}

// Default reminder cutoff: 20:00 local time.
const (
	defaultCutoffHour   = 20
	defaultCutoffMinute = 0
)

// Engine evaluates streak transitions against the ranked store.
type Engine struct {
	store         repository.Store
	notifier      Notifier
	guard         dedupe.Guard
	offsetMinutes int
	cutoffHour    int
	cutoffMinute  int
	log           logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNotifier sets the reminder notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithReminderGuard sets the once-per-day reminder guard.
func WithReminderGuard(g dedupe.Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

// WithOffsetMinutes sets the fixed UTC offset anchoring day boundaries.
func WithOffsetMinutes(offset int) Option {
	return func(e *Engine) {
		e.offsetMinutes = offset
	}
}

// WithCutoff sets the local wall-clock reminder cutoff. Before the
// cutoff an at-risk user gets a reminder; after it the streak resets.
func WithCutoff(hour, minute int) Option {
	return func(e *Engine) {
		if hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
			e.cutoffHour = hour
			e.cutoffMinute = minute
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New constructs a streak engine over the given store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		offsetMinutes: timewindow.WIBOffsetMinutes,
		cutoffHour:    defaultCutoffHour,
		cutoffMinute:  defaultCutoffMinute,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("streak")
	}
	return e
}

// OnActivity applies one qualifying activity event: it awards points and
// advances the streak state machine for the event's local day.
//
// An event dated before the user's last recorded day fails with
// ErrInvariantViolation. Activity is causally ordered, so an older
// timestamp signals clock skew or stale data; correcting it silently
// would mask the bug.
func (e *Engine) OnActivity(ctx context.Context, userID string, points int64, at time.Time) (ActivityResult, error) {
	total, err := e.store.Increment(ctx, userID, points)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("award points: %w", err)
	}

	st, err := e.store.StreakState(ctx, userID)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("read streak: %w", err)
	}

	decision := Restarted
	today := timewindow.DayIndex(at, e.offsetMinutes)
	if !st.LastActivity.IsZero() {
		lastDay := timewindow.DayIndex(st.LastActivity, e.offsetMinutes)
		if today < lastDay {
			metrics.RecordInvariantViolation()
			return ActivityResult{}, fmt.Errorf(
				"%w: activity day %d before last recorded day %d for user %s",
				ErrInvariantViolation, today, lastDay, userID,
			)
		}
		if st.Current > 0 {
			switch {
			case today == lastDay:
				decision = AlreadyCounted
			case today == lastDay+1:
				decision = Extended
			}
		}
	}

	switch decision {
	case Extended:
		st.Current++
		metrics.RecordStreakExtended()
	case Restarted:
		// First-ever activity or a lapse of more than one day: a fresh
		// one-day streak, not an error.
		st.Current = 1
		metrics.RecordStreakRestarted()
	case AlreadyCounted:
		// Streak already advanced today; only the timestamp refreshes.
	}
	if st.Current > st.Max {
		st.Max = st.Current
	}
	st.LastActivity = at

	if err := e.store.SetStreakState(ctx, userID, st); err != nil {
		return ActivityResult{}, fmt.Errorf("write streak: %w", err)
	}

	metrics.RecordActivityEvent()
	e.log.Debug(ctx, "activity applied",
		logger.String("user_id", userID),
		logger.String("decision", decision.String()),
		logger.Int("streak", st.Current),
		logger.Int64("total_points", total),
	)
	return ActivityResult{Decision: decision, Streak: st.Current, Points: total}, nil
}

// EvaluateAtRisk runs one sweep step for a user whose streak looked
// at-risk when the sweep was scheduled. The streak fields are re-read
// here, immediately before any mutation: if qualifying activity arrived
// in the meantime the pending reminder or reset is cancelled, which is
// what makes the sweep idempotent and resolves the reminder-then-active
// race in the user's favor.
func (e *Engine) EvaluateAtRisk(ctx context.Context, userID string, now time.Time) (Decision, error) {
	st, err := e.store.StreakState(ctx, userID)
	if err != nil {
		return NoAction, fmt.Errorf("read streak: %w", err)
	}

	startOfToday := timewindow.StartOfDay(now, e.offsetMinutes)
	if st.Current == 0 || st.LastActivity.IsZero() || !st.LastActivity.Before(startOfToday) {
		return NoAction, nil
	}

	cutoff := timewindow.CutoffAt(now, e.offsetMinutes, e.cutoffHour, e.cutoffMinute)
	if now.Before(cutoff) {
		return e.remind(ctx, userID, st, now)
	}

	st.Current = 0
	if err := e.store.SetStreakState(ctx, userID, st); err != nil {
		// State is untouched on failure; the next sweep retries.
		return NoAction, fmt.Errorf("reset streak: %w", err)
	}
	metrics.RecordStreakReset()
	e.log.Info(ctx, "streak reset",
		logger.String("user_id", userID),
	)
	return Reset, nil
}

// remind dispatches at most one reminder per user per local day.
func (e *Engine) remind(ctx context.Context, userID string, st repository.StreakState, now time.Time) (Decision, error) {
	if !st.RemindersEnabled {
		return NoAction, nil
	}
	if e.notifier == nil {
		return NoAction, nil
	}

	key := reminderKey(userID, timewindow.DayIndex(now, e.offsetMinutes))
	if e.guard != nil && e.guard.SeenAndRecord(ctx, key) {
		return NoAction, nil
	}

	dispatchID := uuid.NewString()
	if err := e.notifier.Remind(ctx, userID, dispatchID, st.Current); err != nil {
		// Fire-and-forget: free the guard slot so the next sweep
		// retries, and carry on.
		if e.guard != nil {
			e.guard.Unrecord(ctx, key)
		}
		e.log.Warn(ctx, "reminder dispatch failed",
			logger.String("user_id", userID),
			logger.String("dispatch_id", dispatchID),
			logger.Error(err),
		)
		return NoAction, nil
	}

	metrics.RecordReminderSent()
	e.log.Info(ctx, "streak reminder sent",
		logger.String("user_id", userID),
		logger.String("dispatch_id", dispatchID),
		logger.Int("streak", st.Current),
	)
	return ReminderDue, nil
}

func reminderKey(userID string, day int64) string {
	return userID + "@" + strconv.FormatInt(day, 10)
}
