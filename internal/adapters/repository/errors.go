package repository

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrNotFound   = errors.New("play not cached")
	ErrInvalidKey = errors.New("invalid play key")
)
