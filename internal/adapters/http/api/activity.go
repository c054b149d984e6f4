// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	streak "github.com/trackeco/gamecore/internal/domain/streak"
)

// ActivityDependencies defines the interface for activity ingestion.
type ActivityDependencies interface {
	RecordActivity(ctx context.Context, userID string, points int64, at time.Time) (streak.ActivityResult, error)
}

// ActivityHandler handles activity requests.
type ActivityHandler struct {
	deps ActivityDependencies
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(deps ActivityDependencies) *ActivityHandler {
	return &ActivityHandler{deps: deps}
}

// activityRequest mirrors the schema for POST /activity.
type activityRequest struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
	TS     string `json:"ts,omitempty"`
}

func (a activityRequest) validate() error {
	switch {
	case isBlank(a.UserID):
		return errors.New("missing user_id")
	case a.Points <= 0:
		return errors.New("points must be positive")
	}
	if a.TS != "" {
		if _, err := time.Parse(time.RFC3339, a.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

type activityResponse struct {
	Decision string `json:"decision"`
	Streak   int    `json:"streak"`
	Points   int64  `json:"points"`
}

// HandlePostActivity handles POST /activity requests. An omitted ts
// means the event happened now.
func (h *ActivityHandler) HandlePostActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_activity"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var at time.Time
	if req.TS != "" {
		at, _ = time.Parse(time.RFC3339, req.TS)
	}

	res, err := h.deps.RecordActivity(r.Context(), req.UserID, req.Points, at)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, activityResponse{
		Decision: res.Decision.String(),
		Streak:   res.Streak,
		Points:   res.Points,
	})
}
