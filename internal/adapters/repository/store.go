// Package repository caches fetched plays so repeated loads skip the backend.
package repository

import (
	"context"

	"github.com/okian/playview/internal/domain/play"
)

// Store persists whole plays keyed by game and play id.
type Store interface {
	// Get returns ErrNotFound when the play is not cached or has expired.
	Get(ctx context.Context, key play.Key) (play.Play, error)
	// Put inserts or replaces the play.
	Put(ctx context.Context, p play.Play) error
	// Count returns the number of cached plays.
	Count(ctx context.Context) (int, error)
	Close() error
}
