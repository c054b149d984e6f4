// Package leaderboard serves ranked, cursor-paginated views of user
// point totals.
//
// Pages are deterministic under the compound sort key (points DESC,
// user id ASC): repeated queries with the same cursor against an
// unchanged store return identical rows. Across pages there is no
// snapshot guarantee: a concurrent score change may surface a user in
// two adjacent pages or in neither during a full traversal. That is an
// accepted trade-off of resumable cursors over a live store, not a bug.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"

	repository "github.com/trackeco/gamecore/internal/adapters/repository"
	"github.com/trackeco/gamecore/internal/domain/cursor"
	"github.com/trackeco/gamecore/internal/domain/types"
	"github.com/trackeco/gamecore/pkg/metrics"
)

// topSentinel is the +infinity scan position used for the first page.
// Store totals saturate below it.
const topSentinel = int64(math.MaxInt64)

// defaultMaxPageSize caps pages when no option overrides it.
const defaultMaxPageSize = 100

// Engine answers leaderboard page queries against a ranked store.
type Engine struct {
	store       repository.Store
	maxPageSize int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMaxPageSize caps the page size accepted by GetPage.
func WithMaxPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPageSize = n
		}
	}
}

// New constructs a leaderboard engine over the given store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		maxPageSize: defaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetPage returns one leaderboard page. An empty token starts from the
// top; otherwise the token must be a cursor previously issued by this
// engine. A malformed token fails with cursor.ErrInvalidCursor and is
// never downgraded to a first-page scan, so lost pagination state is
// visible to the caller.
func (e *Engine) GetPage(ctx context.Context, token string, pageSize int) (types.RankPage, error) {
	if pageSize < 1 {
		return types.RankPage{}, fmt.Errorf("%w: page size %d", ErrInvalidPageSize, pageSize)
	}
	if pageSize > e.maxPageSize {
		return types.RankPage{}, fmt.Errorf("%w: page size %d exceeds maximum %d", ErrInvalidPageSize, pageSize, e.maxPageSize)
	}

	score, afterID := topSentinel, ""
	if token != "" {
		var err error
		score, afterID, err = cursor.Decode(token)
		if err != nil {
			metrics.RecordCursorError()
			return types.RankPage{}, err
		}
	}

	rows, err := e.scanAfter(ctx, score, afterID, pageSize)
	if err != nil {
		return types.RankPage{}, err
	}

	startRank, err := e.startRank(ctx, token, score, afterID)
	if err != nil {
		return types.RankPage{}, err
	}

	page := types.RankPage{Entries: make([]types.Entry, len(rows))}
	for i, m := range rows {
		page.Entries[i] = types.Entry{
			Rank:   startRank + i,
			UserID: m.ID,
			Points: m.Points,
		}
	}
	// A full page may have more rows behind it; a short page is the end
	// of the data.
	if len(rows) == pageSize {
		last := rows[len(rows)-1]
		page.NextCursor = cursor.Encode(last.Points, last.ID)
	}

	metrics.RecordPageServed()
	return page, nil
}

// scanAfter reads the rows strictly after the position (score, afterID)
// as two ordered range reads: the rest of the position's score band,
// then strictly lower scores. Single-expression compound inequalities
// are not assumed of the store; concatenating the two clauses yields the
// identical total order.
func (e *Engine) scanAfter(ctx context.Context, score int64, afterID string, limit int) ([]repository.Member, error) {
	rows, err := e.store.ScanAtScore(ctx, score, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("scan score band: %w", err)
	}
	if rest := limit - len(rows); rest > 0 {
		below, err := e.store.ScanBelowScore(ctx, score, rest)
		if err != nil {
			return nil, fmt.Errorf("scan below score: %w", err)
		}
		rows = append(rows, below...)
	}
	return rows, nil
}

// startRank computes the rank of the first row of the page: one past
// the number of entries at or ahead of the cursor position.
func (e *Engine) startRank(ctx context.Context, token string, score int64, afterID string) (int, error) {
	if token == "" {
		return 1, nil
	}
	ahead, err := e.store.CountAhead(ctx, score, afterID)
	if err != nil {
		return 0, fmt.Errorf("count ahead of cursor: %w", err)
	}
	return ahead + 1, nil
}

// IsInvalidArgument reports whether err is a client-side argument error
// (bad page size or malformed cursor) rather than a store failure.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidPageSize) || errors.Is(err, cursor.ErrInvalidCursor)
}
