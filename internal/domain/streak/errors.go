package streak

import "errors"

// Sentinel kinds for streak errors.
var (
	ErrInvariantViolation = errors.New("streak invariant violation")
)
