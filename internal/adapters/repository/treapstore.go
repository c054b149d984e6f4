package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/trackeco/gamecore/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: points DESC, then user id ASC (deterministic). The BST
// comparator treats "less" as "ranks earlier", so in-order traversal
// produces the leaderboard from best to worst. Subtree sizes are
// maintained for O(log n) rank counting.

// maxPoints caps totals one below MaxInt64 so the engines can use
// MaxInt64 as the +infinity scan sentinel.
const maxPoints = math.MaxInt64 - 1

// record stores a member's point total plus its streak fields.
type record struct {
	points int64
	streak StreakState
}

// treap node
type node struct {
	id     string
	points int64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aPoints, aID) ranks earlier than (bPoints, bID).
func less(aPoints int64, aID string, bPoints int64, bID string) bool {
	if aPoints != bPoints {
		return aPoints > bPoints // higher total ranks earlier
	}
	return aID < bID // tie-break by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, points int64, prio uint64) *node {
	if n == nil {
		return &node{id: id, points: points, prio: prio, size: 1}
	}
	if less(points, id, n.points, n.id) {
		n.left = insert(n.left, id, points, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, points, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, points int64) *node {
	if n == nil {
		return nil
	}
	if points == n.points && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, points)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, points)
		}
	} else if less(points, id, n.points, n.id) {
		n.left = deleteNode(n.left, id, points)
	} else {
		n.right = deleteNode(n.right, id, points)
	}
	fix(n)
	return n
}

// collectBelow appends up to limit members with points strictly below
// max, in rank order.
func collectBelow(n *node, max int64, limit int, out *[]Member) {
	if n == nil || len(*out) >= limit {
		return
	}
	if n.points >= max {
		// The node and its whole left subtree rank at or above max.
		collectBelow(n.right, max, limit, out)
		return
	}
	collectBelow(n.left, max, limit, out)
	if len(*out) < limit {
		*out = append(*out, Member{ID: n.id, Points: n.points})
	}
	collectBelow(n.right, max, limit, out)
}

// collectAtAfter appends up to limit members holding exactly points
// whose id orders strictly after afterID, in ascending id order.
func collectAtAfter(n *node, points int64, afterID string, limit int, out *[]Member) {
	if n == nil || len(*out) >= limit {
		return
	}
	if n.points > points || (n.points == points && n.id <= afterID) {
		// Qualifying members rank after this node.
		collectAtAfter(n.right, points, afterID, limit, out)
		return
	}
	if n.points < points {
		// Qualifying members rank ahead of this node.
		collectAtAfter(n.left, points, afterID, limit, out)
		return
	}
	collectAtAfter(n.left, points, afterID, limit, out)
	if len(*out) < limit {
		*out = append(*out, Member{ID: n.id, Points: n.points})
	}
	collectAtAfter(n.right, points, afterID, limit, out)
}

// countNotAfter returns the number of members at or ahead of the
// position (points, id) in rank order, using subtree sizes.
func countNotAfter(n *node, points int64, id string) int {
	if n == nil {
		return 0
	}
	if less(points, id, n.points, n.id) {
		// Node ranks after the position; only the left subtree can
		// contribute.
		return countNotAfter(n.left, points, id)
	}
	return nsize(n.left) + 1 + countNotAfter(n.right, points, id)
}

// collectAtRisk appends ids of members with an active streak whose last
// activity predates the cutoff. limit <= 0 collects all.
func collectAtRisk(n *node, byID map[string]record, before time.Time, limit int, out *[]string) {
	if n == nil || (limit > 0 && len(*out) >= limit) {
		return
	}
	collectAtRisk(n.left, byID, before, limit, out)
	if limit <= 0 || len(*out) < limit {
		if rec, ok := byID[n.id]; ok {
			if rec.streak.Current > 0 && !rec.streak.LastActivity.IsZero() && rec.streak.LastActivity.Before(before) {
				*out = append(*out, n.id)
			}
		}
	}
	collectAtRisk(n.right, byID, before, limit, out)
}

// TreapStore is the in-memory reference Store.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
	rng  *rand.Rand
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]record),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases store resources. The in-memory store holds none; kept
// so callers can treat every backend uniformly at shutdown.
func (s *TreapStore) Close() error {
	return nil
}

// checkCtx maps an expired or canceled context to the transient
// store-unavailable kind, as every operation must.
func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordStoreError(op)
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return nil
}

// ScanBelowScore implements Store.ScanBelowScore.
func (s *TreapStore) ScanBelowScore(ctx context.Context, maxScoreExclusive int64, limit int) ([]Member, error) {
	const op = "scan_below"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if limit < 1 {
		metrics.RecordStoreError(op)
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Member, 0, limit)
	collectBelow(s.root, maxScoreExclusive, limit, &out)
	return out, nil
}

// ScanAtScore implements Store.ScanAtScore.
func (s *TreapStore) ScanAtScore(ctx context.Context, score int64, afterID string, limit int) ([]Member, error) {
	const op = "scan_at"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if limit < 1 {
		metrics.RecordStoreError(op)
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Member, 0, limit)
	collectAtAfter(s.root, score, afterID, limit, &out)
	return out, nil
}

// CountAhead implements Store.CountAhead.
func (s *TreapStore) CountAhead(ctx context.Context, score int64, id string) (int, error) {
	const op = "count_ahead"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return countNotAfter(s.root, score, id), nil
}

// Increment implements Store.Increment with O(log n) expected time.
func (s *TreapStore) Increment(ctx context.Context, id string, delta int64) (int64, error) {
	const op = "increment"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	s.mu.Lock()
	rec, existed := s.byID[id]
	if existed {
		s.root = deleteNode(s.root, id, rec.points)
	} else {
		rec.streak.RemindersEnabled = true
	}
	rec.points = clampPoints(rec.points, delta)
	s.byID[id] = rec
	s.root = insert(s.root, id, rec.points, s.rng.Uint64())
	total := len(s.byID)
	s.mu.Unlock()

	if !existed {
		metrics.UpdateTotalMembers(total)
	}
	return rec.points, nil
}

// clampPoints applies delta, saturating at [0, maxPoints].
func clampPoints(points, delta int64) int64 {
	sum := points + delta
	switch {
	case delta > 0 && sum < points: // overflow
		return maxPoints
	case sum > maxPoints:
		return maxPoints
	case sum < 0:
		return 0
	default:
		return sum
	}
}

// Member implements Store.Member.
func (s *TreapStore) Member(ctx context.Context, id string) (Member, error) {
	const op = "member"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return Member{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		metrics.RecordStoreError(op)
		return Member{}, ErrNotFound
	}
	return Member{ID: id, Points: rec.points}, nil
}

// StreakState implements Store.StreakState.
func (s *TreapStore) StreakState(ctx context.Context, id string) (StreakState, error) {
	const op = "streak_get"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return StreakState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		metrics.RecordStoreError(op)
		return StreakState{}, ErrNotFound
	}
	return rec.streak, nil
}

// SetStreakState implements Store.SetStreakState. The member is created
// with zero points when absent so streak fields never dangle.
func (s *TreapStore) SetStreakState(ctx context.Context, id string, st StreakState) error {
	const op = "streak_set"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, existed := s.byID[id]
	rec.streak = st
	s.byID[id] = rec
	if !existed {
		s.root = insert(s.root, id, rec.points, s.rng.Uint64())
	}
	return nil
}

// AtRisk implements Store.AtRisk.
func (s *TreapStore) AtRisk(ctx context.Context, before time.Time, limit int) ([]string, error) {
	const op = "at_risk"
	start := time.Now()
	defer func() { metrics.RecordStoreOpLatency(op, float64(time.Since(start).Milliseconds())) }()

	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	collectAtRisk(s.root, s.byID, before, limit, &out)
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
