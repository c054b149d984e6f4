package repository

import "errors"

// Sentinel kinds for ranked store errors.
var (
	ErrNotFound     = errors.New("member not found")
	ErrInvalidLimit = errors.New("invalid scan limit")
	ErrUnavailable  = errors.New("store unavailable")
)
