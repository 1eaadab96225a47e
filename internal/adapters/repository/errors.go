package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrInvalidLimit = errors.New("invalid watchlist limit")
)
