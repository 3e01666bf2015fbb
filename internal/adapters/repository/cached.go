package repository

import (
	"context"
	"errors"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// Source is anything that can fetch a play.
type Source interface {
	FetchPlay(ctx context.Context, gameID, playID int64) (play.Play, error)
}

// CachedSource is a read-through cache in front of a Source. Cache failures
// are logged and never fail a fetch.
type CachedSource struct {
	source Source
	store  Store
	logger logger.Logger
}

// NewCachedSource wraps source with store.
func NewCachedSource(source Source, store Store) *CachedSource {
	return &CachedSource{
		source: source,
		store:  store,
		logger: logger.Get().Named("play_cache"),
	}
}

func (c *CachedSource) FetchPlay(ctx context.Context, gameID, playID int64) (play.Play, error) {
	key := play.Key{GameID: gameID, PlayID: playID}

	p, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.RecordCacheHit()
		return p, nil
	case errors.Is(err, ErrNotFound):
		metrics.RecordCacheMiss()
	default:
		metrics.RecordCacheMiss()
		metrics.RecordErrorByComponent("play_cache", "read_failed")
		c.logger.Warn(ctx, "play cache read failed", logger.Error(err))
	}

	p, err = c.source.FetchPlay(ctx, gameID, playID)
	if err != nil {
		return play.Play{}, err
	}
	if err := c.store.Put(ctx, p); err != nil {
		metrics.RecordErrorByComponent("play_cache", "write_failed")
		c.logger.Warn(ctx, "play cache write failed",
			logger.Int64("game_id", gameID), logger.Int64("play_id", playID), logger.Error(err))
	}
	return p, nil
}
