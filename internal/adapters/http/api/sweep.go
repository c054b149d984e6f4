// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	sweep "github.com/trackeco/gamecore/internal/adapters/sweep"
)

// SweepDependencies defines the interface for on-demand sweeps.
type SweepDependencies interface {
	RunSweepOnce(ctx context.Context) (sweep.Stats, error)
}

// SweepHandler triggers maintenance passes on demand. Intended for
// operators and scheduled jobs, not end users.
type SweepHandler struct {
	deps SweepDependencies
}

// NewSweepHandler creates a new sweep handler.
func NewSweepHandler(deps SweepDependencies) *SweepHandler {
	return &SweepHandler{deps: deps}
}

// HandlePostSweep handles POST /sweep requests.
func (h *SweepHandler) HandlePostSweep(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sweep"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	stats, err := h.deps.RunSweepOnce(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
