package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	api "github.com/trackeco/gamecore/internal/adapters/http/api"
	service "github.com/trackeco/gamecore/internal/app"
	"github.com/trackeco/gamecore/internal/domain/types"
	"github.com/trackeco/gamecore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestMux() (*http.ServeMux, *service.Service) {
	svc := service.New(
		service.WithStoreSeed(17),
		service.WithDefaultPageSize(2),
		service.WithMaxPageSize(10),
		service.WithSweepInterval(time.Hour),
	)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux, svc
}

func doJSON(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func postActivity(mux *http.ServeMux, userID string, points int64, ts string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"user_id":%q,"points":%d`, userID, points)
	if ts != "" {
		body += fmt.Sprintf(`,"ts":%q`, ts)
	}
	body += "}"
	return doJSON(mux, http.MethodPost, "/activity", body)
}

func TestActivityEndpoint(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When a valid activity event is posted", func() {
			rec := postActivity(mux, "alice", 10, "2025-03-10T09:00:00+07:00")

			Convey("Then it is applied and the streak decision returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var res struct {
					Decision string `json:"decision"`
					Streak   int    `json:"streak"`
					Points   int64  `json:"points"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Decision, ShouldEqual, "restarted")
				So(res.Streak, ShouldEqual, 1)
				So(res.Points, ShouldEqual, 10)
			})
		})

		Convey("When the payload is malformed", func() {
			missing := doJSON(mux, http.MethodPost, "/activity", `{"points":10}`)
			badTS := doJSON(mux, http.MethodPost, "/activity", `{"user_id":"a","points":10,"ts":"yesterday"}`)
			zero := doJSON(mux, http.MethodPost, "/activity", `{"user_id":"a","points":0}`)

			Convey("Then each request is rejected with 400", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(badTS.Code, ShouldEqual, http.StatusBadRequest)
				So(zero.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an event is backdated behind the recorded day", func() {
			first := postActivity(mux, "alice", 10, "2025-03-10T09:00:00+07:00")
			So(first.Code, ShouldEqual, http.StatusOK)
			rec := postActivity(mux, "alice", 10, "2025-03-08T09:00:00+07:00")

			Convey("Then the conflict surfaces as 409", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
				var res struct {
					Code string `json:"code"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Code, ShouldEqual, "conflict")
			})
		})

		Convey("When the method is wrong", func() {
			rec := doJSON(mux, http.MethodGet, "/activity", "")

			Convey("Then the route does not exist", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given three users with tied and distinct scores", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		ts := "2025-03-10T09:00:00+07:00"
		So(postActivity(mux, "alpha", 100, ts).Code, ShouldEqual, http.StatusOK)
		So(postActivity(mux, "bravo", 100, ts).Code, ShouldEqual, http.StatusOK)
		So(postActivity(mux, "carol", 90, ts).Code, ShouldEqual, http.StatusOK)

		Convey("When the first page is fetched", func() {
			rec := doJSON(mux, http.MethodGet, "/leaderboard?page_size=2", "")

			Convey("Then ties break by user id and a cursor is issued", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var page types.RankPage
				So(json.Unmarshal(rec.Body.Bytes(), &page), ShouldBeNil)
				So(page.Entries, ShouldHaveLength, 2)
				So(page.Entries[0].UserID, ShouldEqual, "alpha")
				So(page.Entries[0].Rank, ShouldEqual, 1)
				So(page.Entries[1].UserID, ShouldEqual, "bravo")
				So(page.Entries[1].Rank, ShouldEqual, 2)
				So(page.NextCursor, ShouldNotBeEmpty)

				Convey("And following the cursor completes the traversal", func() {
					next := doJSON(mux, http.MethodGet, "/leaderboard?page_size=2&cursor="+page.NextCursor, "")
					So(next.Code, ShouldEqual, http.StatusOK)
					var rest types.RankPage
					So(json.Unmarshal(next.Body.Bytes(), &rest), ShouldBeNil)
					So(rest.Entries, ShouldHaveLength, 1)
					So(rest.Entries[0].UserID, ShouldEqual, "carol")
					So(rest.Entries[0].Rank, ShouldEqual, 3)
					So(rest.NextCursor, ShouldBeEmpty)
				})
			})
		})

		Convey("When page_size is omitted", func() {
			rec := doJSON(mux, http.MethodGet, "/leaderboard", "")

			Convey("Then the configured default applies", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var page types.RankPage
				So(json.Unmarshal(rec.Body.Bytes(), &page), ShouldBeNil)
				So(page.Entries, ShouldHaveLength, 2)
			})
		})

		Convey("When the cursor is malformed", func() {
			rec := doJSON(mux, http.MethodGet, "/leaderboard?page_size=2&cursor=garbage!!", "")

			Convey("Then the request fails loudly with 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				var res struct {
					Code string `json:"code"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Code, ShouldEqual, "invalid_cursor")
			})
		})

		Convey("When page_size is not a positive integer", func() {
			zero := doJSON(mux, http.MethodGet, "/leaderboard?page_size=0", "")
			word := doJSON(mux, http.MethodGet, "/leaderboard?page_size=lots", "")
			huge := doJSON(mux, http.MethodGet, "/leaderboard?page_size=11", "")

			Convey("Then each request is rejected with 400", func() {
				So(zero.Code, ShouldEqual, http.StatusBadRequest)
				So(word.Code, ShouldEqual, http.StatusBadRequest)
				So(huge.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRankEndpoint(t *testing.T) {
	Convey("Given a ranked user", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		So(postActivity(mux, "alice", 42, "2025-03-10T09:00:00+07:00").Code, ShouldEqual, http.StatusOK)

		Convey("When their standing is fetched", func() {
			rec := doJSON(mux, http.MethodGet, "/rank/alice", "")

			Convey("Then rank, points, and streak fields are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var standing types.Standing
				So(json.Unmarshal(rec.Body.Bytes(), &standing), ShouldBeNil)
				So(standing.Rank, ShouldEqual, 1)
				So(standing.Points, ShouldEqual, 42)
				So(standing.CurrentStreak, ShouldEqual, 1)
			})
		})

		Convey("When the user is unknown", func() {
			rec := doJSON(mux, http.MethodGet, "/rank/nobody", "")

			Convey("Then it reports 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the path is malformed", func() {
			rec := doJSON(mux, http.MethodGet, "/rank/alice/extra", "")

			Convey("Then it reports 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSweepAndStatsEndpoints(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When a sweep is triggered on demand", func() {
			rec := doJSON(mux, http.MethodPost, "/sweep", "")

			Convey("Then the pass stats are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var stats struct {
					Evaluated int `json:"evaluated"`
					Failures  int `json:"failures"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
				So(stats.Failures, ShouldEqual, 0)
			})
		})

		Convey("When stats are fetched", func() {
			rec := doJSON(mux, http.MethodGet, "/stats", "")

			Convey("Then the snapshot reports the running service", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var snapshot map[string]interface{}
				So(json.Unmarshal(rec.Body.Bytes(), &snapshot), ShouldBeNil)
				So(snapshot["started"], ShouldEqual, true)
			})
		})

		Convey("When the metrics endpoint is scraped", func() {
			rec := doJSON(mux, http.MethodGet, "/healthz", "")

			Convey("Then it serves the Prometheus registry", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
