package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrInvalidPageSize = errors.New("invalid page size")
)
