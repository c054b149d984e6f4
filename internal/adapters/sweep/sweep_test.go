package sweep_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	sweep "github.com/trackeco/gamecore/internal/adapters/sweep"
	"github.com/trackeco/gamecore/internal/domain/dedupe"
	streak "github.com/trackeco/gamecore/internal/domain/streak"
	"github.com/trackeco/gamecore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var wib = time.FixedZone("WIB", 7*3600)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) Remind(context.Context, string, string, int) error {
	n.calls++
	return nil
}

// flakyEvaluator fails a fixed set of users and reminds the rest.
type flakyEvaluator struct {
	failing map[string]bool
}

func (e *flakyEvaluator) EvaluateAtRisk(_ context.Context, userID string, _ time.Time) (streak.Decision, error) {
	if e.failing[userID] {
		return streak.NoAction, errors.New("store hiccup")
	}
	return streak.ReminderDue, nil
}

func TestRunnerWithStreakEngine(t *testing.T) {
	Convey("Given three users who were active yesterday", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := repository.NewTreapStore(repository.WithSeed(11))
		notifier := &countingNotifier{}
		eng := streak.New(store,
			streak.WithNotifier(notifier),
			streak.WithReminderGuard(dedupe.NewInMemoryGuard()),
			streak.WithCutoff(20, 0),
		)

		yesterday := time.Date(2025, 3, 9, 18, 0, 0, 0, wib)
		for _, id := range []string{"alice", "bob", "carol"} {
			_, err := eng.OnActivity(ctx, id, 10, yesterday)
			So(err, ShouldBeNil)
		}

		runner := sweep.NewRunner(store, eng, sweep.WithWorkerCount(2))
		go runner.Start(ctx)

		beforeCutoff := time.Date(2025, 3, 10, 12, 0, 0, 0, wib)
		afterCutoff := time.Date(2025, 3, 10, 21, 0, 0, 0, wib)

		Convey("When a pass runs before the cutoff", func() {
			stats, err := runner.RunOnce(ctx, beforeCutoff)

			Convey("Then every at-risk user gets exactly one reminder", func() {
				So(err, ShouldBeNil)
				So(stats.Evaluated, ShouldEqual, 3)
				So(stats.Reminded, ShouldEqual, 3)
				So(stats.Resets, ShouldEqual, 0)
				So(notifier.calls, ShouldEqual, 3)
			})

			Convey("And a repeated pass reminds nobody twice", func() {
				again, err := runner.RunOnce(ctx, beforeCutoff.Add(time.Hour))
				So(err, ShouldBeNil)
				So(again.Reminded, ShouldEqual, 0)
				So(notifier.calls, ShouldEqual, 3)
			})
		})

		Convey("When a pass runs after the cutoff", func() {
			stats, err := runner.RunOnce(ctx, afterCutoff)

			Convey("Then every stale streak resets", func() {
				So(err, ShouldBeNil)
				So(stats.Resets, ShouldEqual, 3)
				for _, id := range []string{"alice", "bob", "carol"} {
					st, err := store.StreakState(ctx, id)
					So(err, ShouldBeNil)
					So(st.Current, ShouldEqual, 0)
				}
			})

			Convey("And the next pass finds nothing at risk", func() {
				again, err := runner.RunOnce(ctx, afterCutoff.Add(time.Hour))
				So(err, ShouldBeNil)
				So(again.Evaluated, ShouldEqual, 0)
			})
		})

		Convey("When a user is active again before the pass", func() {
			today := time.Date(2025, 3, 10, 8, 0, 0, 0, wib)
			_, err := eng.OnActivity(ctx, "bob", 5, today)
			So(err, ShouldBeNil)

			stats, err := runner.RunOnce(ctx, afterCutoff)

			Convey("Then only the stale users reset", func() {
				So(err, ShouldBeNil)
				So(stats.Resets, ShouldEqual, 2)
				st, err := store.StreakState(ctx, "bob")
				So(err, ShouldBeNil)
				So(st.Current, ShouldEqual, 2)
			})
		})

		Convey("And the last pass is recorded", func() {
			_, err := runner.RunOnce(ctx, beforeCutoff)
			So(err, ShouldBeNil)
			last, at, ok := runner.LastPass()
			So(ok, ShouldBeTrue)
			So(last.Evaluated, ShouldEqual, 3)
			So(at.Equal(beforeCutoff), ShouldBeTrue)
		})
	})
}

func TestRunnerFailureIsolation(t *testing.T) {
	Convey("Given a pass where one user's evaluation fails", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := repository.NewTreapStore(repository.WithSeed(11))
		yesterday := time.Date(2025, 3, 9, 18, 0, 0, 0, wib)
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("user-%d", i)
			_, err := store.Increment(ctx, id, 10)
			So(err, ShouldBeNil)
			So(store.SetStreakState(ctx, id, repository.StreakState{
				Current:          1,
				Max:              1,
				LastActivity:     yesterday,
				RemindersEnabled: true,
			}), ShouldBeNil)
		}

		eval := &flakyEvaluator{failing: map[string]bool{"user-2": true}}
		runner := sweep.NewRunner(store, eval, sweep.WithWorkerCount(3))
		go runner.Start(ctx)

		Convey("When the pass runs", func() {
			stats, err := runner.RunOnce(ctx, time.Date(2025, 3, 10, 12, 0, 0, 0, wib))

			Convey("Then the failure does not sink the other users", func() {
				So(err, ShouldBeNil)
				So(stats.Failures, ShouldEqual, 1)
				So(stats.Evaluated, ShouldEqual, 4)
				So(stats.Reminded, ShouldEqual, 4)
			})
		})
	})
}

func TestRunnerCancellation(t *testing.T) {
	Convey("Given a sweep runner whose context is already cancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		store := repository.NewTreapStore(repository.WithSeed(11))
		runner := sweep.NewRunner(store, &flakyEvaluator{}, sweep.WithWorkerCount(1))

		Convey("When a pass is attempted", func() {
			_, err := runner.RunOnce(ctx, time.Now())

			Convey("Then it fails as a transient store error", func() {
				So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestRunnerInterruptedPass(t *testing.T) {
	Convey("Given a pass whose context is cancelled while tasks are queued", t, func() {
		ctx, cancel := context.WithCancel(context.Background())

		store := repository.NewTreapStore(repository.WithSeed(11))
		yesterday := time.Date(2025, 3, 9, 18, 0, 0, 0, wib)
		for i := 0; i < 3; i++ {
			id := fmt.Sprintf("user-%d", i)
			_, err := store.Increment(ctx, id, 10)
			So(err, ShouldBeNil)
			So(store.SetStreakState(ctx, id, repository.StreakState{
				Current:          1,
				Max:              1,
				LastActivity:     yesterday,
				RemindersEnabled: true,
			}), ShouldBeNil)
		}

		// The pool is never started, so nothing consumes the queue and
		// the pass can only end through cancellation.
		q := sweep.NewInMemoryQueue(sweep.WithCapacity(8))
		runner := sweep.NewRunner(store, &flakyEvaluator{}, sweep.WithQueue(q))

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		Convey("When the pass is interrupted", func() {
			_, err := runner.RunOnce(ctx, time.Date(2025, 3, 10, 12, 0, 0, 0, wib))

			Convey("Then it reports the interruption and leaves no queued work behind", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestRunnerShutdown(t *testing.T) {
	Convey("Given a running sweep runner", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := repository.NewTreapStore(repository.WithSeed(11))
		eval := &flakyEvaluator{}
		runner := sweep.NewRunner(store, eval, sweep.WithWorkerCount(1))
		go runner.Start(ctx)

		Convey("When it is shut down", func() {
			So(runner.Shutdown(ctx), ShouldBeNil)

			Convey("Then further passes are refused", func() {
				_, err := runner.RunOnce(ctx, time.Now())
				So(errors.Is(err, sweep.ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity two", t, func() {
		ctx := context.Background()
		q := sweep.NewInMemoryQueue(sweep.WithCapacity(2))

		Convey("When tasks are enqueued past capacity", func() {
			So(q.Enqueue(ctx, sweep.Task{UserID: "a"}), ShouldBeTrue)
			So(q.Enqueue(ctx, sweep.Task{UserID: "b"}), ShouldBeTrue)

			Convey("Then the overflow task is rejected, not queued", func() {
				So(q.Enqueue(ctx, sweep.Task{UserID: "c"}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue is refused and close is idempotent", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, sweep.Task{UserID: "a"}), ShouldBeFalse)
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
