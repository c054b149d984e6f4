package leaderboard_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	"github.com/trackeco/gamecore/internal/domain/cursor"
	"github.com/trackeco/gamecore/internal/domain/leaderboard"
	"github.com/trackeco/gamecore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func newStore(ctx context.Context, pairs map[string]int64) *repository.TreapStore {
	s := repository.NewTreapStore(repository.WithSeed(11))
	for id, pts := range pairs {
		_, _ = s.Increment(ctx, id, pts)
	}
	return s
}

func TestGetPageWorkedExample(t *testing.T) {
	Convey("Given users A and B tied at 100 and C at 90", t, func() {
		ctx := context.Background()
		store := newStore(ctx, map[string]int64{"A": 100, "B": 100, "C": 90})
		engine := leaderboard.New(store)

		Convey("When requesting the first page of two", func() {
			page, err := engine.GetPage(ctx, "", 2)
			So(err, ShouldBeNil)

			Convey("Then A and B come back ranked 1 and 2", func() {
				So(page.Entries, ShouldResemble, []types.Entry{
					{Rank: 1, UserID: "A", Points: 100},
					{Rank: 2, UserID: "B", Points: 100},
				})
			})

			Convey("And the cursor decodes to (100, B)", func() {
				So(page.NextCursor, ShouldNotBeEmpty)
				score, id, err := cursor.Decode(page.NextCursor)
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 100)
				So(id, ShouldEqual, "B")
			})

			Convey("And the second page holds C at rank 3 with no cursor", func() {
				next, err := engine.GetPage(ctx, page.NextCursor, 2)
				So(err, ShouldBeNil)
				So(next.Entries, ShouldResemble, []types.Entry{
					{Rank: 3, UserID: "C", Points: 90},
				})
				So(next.NextCursor, ShouldBeEmpty)
			})
		})
	})
}

func TestGetPageDeterminism(t *testing.T) {
	Convey("Given an unchanged store", t, func() {
		ctx := context.Background()
		store := newStore(ctx, map[string]int64{
			"u1": 50, "u2": 50, "u3": 50, "u4": 40, "u5": 60,
		})
		engine := leaderboard.New(store)

		Convey("Then two identical first-page calls return identical pages", func() {
			a, err := engine.GetPage(ctx, "", 3)
			So(err, ShouldBeNil)
			b, err := engine.GetPage(ctx, "", 3)
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})

		Convey("And resuming from the same cursor is idempotent", func() {
			first, err := engine.GetPage(ctx, "", 2)
			So(err, ShouldBeNil)
			a, err := engine.GetPage(ctx, first.NextCursor, 2)
			So(err, ShouldBeNil)
			b, err := engine.GetPage(ctx, first.NextCursor, 2)
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})
	})
}

func TestGetPageCompleteness(t *testing.T) {
	Convey("Given a frozen store with ties across page boundaries", t, func() {
		ctx := context.Background()
		pairs := map[string]int64{}
		for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			pairs[id] = 30
		}
		pairs["h"] = 70
		pairs["i"] = 10
		store := newStore(ctx, pairs)
		engine := leaderboard.New(store)

		Convey("When traversing all pages of three to exhaustion", func() {
			var all []types.Entry
			token := ""
			for {
				page, err := engine.GetPage(ctx, token, 3)
				So(err, ShouldBeNil)
				all = append(all, page.Entries...)
				if page.NextCursor == "" {
					break
				}
				token = page.NextCursor
			}

			Convey("Then every user appears exactly once", func() {
				So(len(all), ShouldEqual, 9)
				seen := map[string]bool{}
				for _, e := range all {
					So(seen[e.UserID], ShouldBeFalse)
					seen[e.UserID] = true
				}
			})

			Convey("And order is non-increasing points with ascending tie-break", func() {
				for i := 1; i < len(all); i++ {
					prev, cur := all[i-1], all[i]
					So(prev.Points, ShouldBeGreaterThanOrEqualTo, cur.Points)
					if prev.Points == cur.Points {
						So(prev.UserID, ShouldBeLessThan, cur.UserID)
					}
				}
			})

			Convey("And ranks are the consecutive positions 1..9", func() {
				for i, e := range all {
					So(e.Rank, ShouldEqual, i+1)
				}
			})
		})
	})
}

func TestGetPageArguments(t *testing.T) {
	Convey("Given an engine with a max page size of 5", t, func() {
		ctx := context.Background()
		store := newStore(ctx, map[string]int64{"A": 1})
		engine := leaderboard.New(store, leaderboard.WithMaxPageSize(5))

		Convey("Then non-positive page sizes are rejected", func() {
			_, err := engine.GetPage(ctx, "", 0)
			So(errors.Is(err, leaderboard.ErrInvalidPageSize), ShouldBeTrue)
			So(leaderboard.IsInvalidArgument(err), ShouldBeTrue)

			_, err = engine.GetPage(ctx, "", -3)
			So(errors.Is(err, leaderboard.ErrInvalidPageSize), ShouldBeTrue)
		})

		Convey("And oversized pages are rejected", func() {
			_, err := engine.GetPage(ctx, "", 6)
			So(errors.Is(err, leaderboard.ErrInvalidPageSize), ShouldBeTrue)
		})

		Convey("And a malformed cursor is rejected, not treated as page one", func() {
			_, err := engine.GetPage(ctx, "not-a-cursor", 5)
			So(errors.Is(err, cursor.ErrInvalidCursor), ShouldBeTrue)
			So(leaderboard.IsInvalidArgument(err), ShouldBeTrue)
		})
	})
}

func TestGetPageShortFirstPage(t *testing.T) {
	Convey("Given fewer users than one page", t, func() {
		ctx := context.Background()
		store := newStore(ctx, map[string]int64{"A": 10, "B": 5})
		engine := leaderboard.New(store)

		Convey("Then the single page has no next cursor", func() {
			page, err := engine.GetPage(ctx, "", 10)
			So(err, ShouldBeNil)
			So(len(page.Entries), ShouldEqual, 2)
			So(page.NextCursor, ShouldBeEmpty)
		})
	})
}
