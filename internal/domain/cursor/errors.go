package cursor

import "errors"

// Sentinel kinds for cursor errors.
var (
	ErrInvalidCursor = errors.New("invalid cursor")
)
