// Package repository defines the ranked store contract and errors.
//
// The contract is the minimal storage surface the leaderboard and streak
// engines require: ordered range scans under the compound sort key
// (points DESC, user id ASC), an atomic per-user counter, and point
// reads/writes of streak fields. Any backend offering these semantics
// can sit behind the interface; the in-memory treap implementation in
// this package is the reference one.
package repository

import (
	"context"
	"time"
)

// Member is one ranked row: a user id and its point total.
type Member struct {
	ID     string
	Points int64
}

// StreakState holds the per-user streak fields. The streak engine is the
// sole writer, so last-writer-wins point writes are sufficient.
type StreakState struct {
	Current          int
	Max              int
	LastActivity     time.Time // zero means no qualifying activity yet
	RemindersEnabled bool
}

// Store provides ordered, ranked access to user point totals plus the
// streak fields the daily state machine needs.
//
// All operations honor the deadline on ctx; expiry surfaces as
// ErrUnavailable, which callers must treat as transient and retryable,
// never as an empty result.
type Store interface {
	// ScanBelowScore returns up to limit members whose points are
	// strictly below maxScoreExclusive, ordered points DESC then id ASC.
	ScanBelowScore(ctx context.Context, maxScoreExclusive int64, limit int) ([]Member, error)

	// ScanAtScore returns up to limit members holding exactly score
	// points whose id orders strictly after afterID (ascending). An
	// empty afterID starts at the beginning of the score band.
	//
	// Together with ScanBelowScore this realizes the two-clause cursor
	// continuation predicate: "equal score, id after" concatenated with
	// "strictly lower score".
	ScanAtScore(ctx context.Context, score int64, afterID string, limit int) ([]Member, error)

	// CountAhead returns the number of members at or ahead of the given
	// position in rank order. The position's own row, when present, is
	// included, so a page resumed from cursor (s, id) starts at rank
	// CountAhead(s, id)+1.
	CountAhead(ctx context.Context, score int64, id string) (int, error)

	// Increment atomically adds delta to a member's point total and
	// returns the new value, creating the member at delta if absent.
	// Concurrent increments on the same id serialize; different ids are
	// independent. Totals never drop below zero.
	Increment(ctx context.Context, id string, delta int64) (int64, error)

	// Member returns the ranked row for a user.
	// Returns ErrNotFound if the user is unknown.
	Member(ctx context.Context, id string) (Member, error)

	// StreakState returns the streak fields for a user.
	// Returns ErrNotFound if the user is unknown.
	StreakState(ctx context.Context, id string) (StreakState, error)

	// SetStreakState replaces the streak fields for a user.
	SetStreakState(ctx context.Context, id string, s StreakState) error

	// AtRisk returns ids of members with an active streak whose last
	// qualifying activity was before the given instant. limit <= 0
	// means no limit.
	AtRisk(ctx context.Context, before time.Time, limit int) ([]string, error)

	// Count returns the number of members tracked in the leaderboard.
	Count(ctx context.Context) int
}
