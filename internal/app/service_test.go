package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	service "github.com/trackeco/gamecore/internal/app"
	"github.com/trackeco/gamecore/internal/domain/cursor"
	leaderboard "github.com/trackeco/gamecore/internal/domain/leaderboard"
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

func startedService() *service.Service {
	svc := service.New(
		service.WithStoreSeed(13),
		service.WithDefaultPageSize(2),
		service.WithMaxPageSize(10),
		service.WithSweepInterval(time.Hour),
		service.WithSweepWorkerCount(2),
	)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithSweepInterval(time.Hour))

		Convey("When started twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then stop is clean and idempotent", func() {
				svc.Stop()
				svc.Stop()
			})
		})
	})
}

func TestServiceActivityAndRank(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService()
		defer svc.Stop()

		day := time.Date(2025, 3, 10, 9, 0, 0, 0, wib)

		Convey("When a user records qualifying activity", func() {
			res, err := svc.RecordActivity(ctx, "alice", 42, day)

			Convey("Then points and a fresh streak are awarded", func() {
				So(err, ShouldBeNil)
				So(res.Decision, ShouldEqual, streak.Restarted)
				So(res.Streak, ShouldEqual, 1)
				So(res.Points, ShouldEqual, 42)
			})

			Convey("And the user's standing reflects it", func() {
				standing, err := svc.Rank(ctx, "alice")
				So(err, ShouldBeNil)
				So(standing.Rank, ShouldEqual, 1)
				So(standing.Points, ShouldEqual, 42)
				So(standing.CurrentStreak, ShouldEqual, 1)
			})
		})

		Convey("When the arguments are invalid", func() {
			_, errEmpty := svc.RecordActivity(ctx, "  ", 10, day)
			_, errPoints := svc.RecordActivity(ctx, "alice", 0, day)

			Convey("Then both are rejected as invalid arguments", func() {
				So(errors.Is(errEmpty, service.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(errPoints, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When an unknown user's rank is requested", func() {
			_, err := svc.Rank(ctx, "nobody")

			Convey("Then it reports not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServicePagination(t *testing.T) {
	Convey("Given a started service with three ranked users", t, func() {
		ctx := context.Background()
		svc := startedService()
		defer svc.Stop()

		day := time.Date(2025, 3, 10, 9, 0, 0, 0, wib)
		for _, seed := range []struct {
			id     string
			points int64
		}{{"alpha", 100}, {"bravo", 100}, {"carol", 90}} {
			_, err := svc.RecordActivity(ctx, seed.id, seed.points, day)
			So(err, ShouldBeNil)
		}

		Convey("When the first page is requested with the default size", func() {
			page, err := svc.GetPage(ctx, "", 0)

			Convey("Then ties break by user id and a cursor is issued", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldHaveLength, 2)
				So(page.Entries[0].UserID, ShouldEqual, "alpha")
				So(page.Entries[1].UserID, ShouldEqual, "bravo")
				So(page.NextCursor, ShouldNotBeEmpty)
			})

			Convey("And the next page resumes with correct ranks", func() {
				next, err := svc.GetPage(ctx, page.NextCursor, 0)
				So(err, ShouldBeNil)
				So(next.Entries, ShouldHaveLength, 1)
				So(next.Entries[0].UserID, ShouldEqual, "carol")
				So(next.Entries[0].Rank, ShouldEqual, 3)
				So(next.NextCursor, ShouldBeEmpty)
			})
		})

		Convey("When the cursor is garbage", func() {
			_, err := svc.GetPage(ctx, "not-a-cursor", 2)

			Convey("Then the request fails instead of restarting silently", func() {
				So(errors.Is(err, cursor.ErrInvalidCursor), ShouldBeTrue)
			})
		})

		Convey("When the page size exceeds the cap", func() {
			_, err := svc.GetPage(ctx, "", 11)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, leaderboard.ErrInvalidPageSize), ShouldBeTrue)
			})
		})
	})
}

func TestServiceSweepAndStats(t *testing.T) {
	Convey("Given a started service with a stale streak", t, func() {
		ctx := context.Background()
		svc := startedService()
		defer svc.Stop()

		yesterday := time.Now().AddDate(0, 0, -1)
		_, err := svc.RecordActivity(ctx, "alice", 10, yesterday)
		So(err, ShouldBeNil)

		Convey("When a sweep runs on demand", func() {
			stats, err := svc.RunSweepOnce(ctx)

			Convey("Then the stale user is evaluated", func() {
				So(err, ShouldBeNil)
				So(stats.Evaluated, ShouldEqual, 1)
				So(stats.Failures, ShouldEqual, 0)
			})

			Convey("And the stats snapshot records the pass", func() {
				snapshot := svc.GetStats()
				So(snapshot["started"], ShouldBeTrue)
				So(snapshot["total_members"], ShouldEqual, 1)
				So(snapshot, ShouldContainKey, "last_sweep")
			})
		})
	})
}
