// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	sweep "github.com/trackeco/gamecore/internal/adapters/sweep"
	"github.com/trackeco/gamecore/internal/domain/cursor"
	"github.com/trackeco/gamecore/internal/domain/leaderboard"
	streak "github.com/trackeco/gamecore/internal/domain/streak"
	"github.com/trackeco/gamecore/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// GetPage serves one cursor-paginated leaderboard page.
	GetPage(ctx context.Context, cursorToken string, pageSize int) (types.RankPage, error)

	// RecordActivity applies one qualifying activity event.
	RecordActivity(ctx context.Context, userID string, points int64, at time.Time) (streak.ActivityResult, error)

	// Rank returns a single user's standing.
	Rank(ctx context.Context, userID string) (types.Standing, error)

	// RunSweepOnce triggers a maintenance pass immediately.
	RunSweepOnce(ctx context.Context) (sweep.Stats, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	activityHandler    *ActivityHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	sweepHandler       *SweepHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		activityHandler:    NewActivityHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		sweepHandler:       NewSweepHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/activity", MetricsMiddleware(s.activityHandler.HandlePostActivity, "activity"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/sweep", MetricsMiddleware(s.sweepHandler.HandlePostSweep, "sweep"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain error kinds onto HTTP statuses. Anything
// unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cursor.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "invalid_cursor", err)
	case errors.Is(err, leaderboard.ErrInvalidPageSize):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, streak.ErrInvariantViolation):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// isBlank reports whether a required string field is missing.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
