package sweep

import "errors"

// Sentinel kinds for sweep errors.
var (
	ErrClosed = errors.New("sweep queue closed")
)
