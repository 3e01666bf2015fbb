package repository

import (
	"time"

	"github.com/okian/playview/pkg/logger"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithTTL expires cached plays older than ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *SQLiteStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}
