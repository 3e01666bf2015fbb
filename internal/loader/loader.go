// Package loader fetches plays from a source and hands them to the playback
// controller, letting the latest request win.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/playview/internal/adapters/backend"
	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

var (
	// ErrInvalidPlayKey is returned for non-positive game or play ids.
	ErrInvalidPlayKey = errors.New("invalid play key")
	// ErrSuperseded is returned when a newer load started before this one finished.
	ErrSuperseded = errors.New("load superseded by a newer request")
)

// Source provides play data.
type Source interface {
	FetchPlay(ctx context.Context, gameID, playID int64) (play.Play, error)
}

// Target receives loaded plays.
type Target interface {
	Load(ctx context.Context, p play.Play)
	DisableControls(ctx context.Context, status string)
}

// Loader serializes play loads onto a Target.
type Loader struct {
	source Source
	target Target
	logger logger.Logger

	mu  sync.Mutex
	gen uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets a custom logger for the loader.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// New returns a loader reading from source into target.
func New(source Source, target Target, opts ...Option) *Loader {
	l := &Loader{source: source, target: target}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("loader")
	}
	return l
}

// LoadingStatus is the status shown while a play is being fetched.
func LoadingStatus(gameID, playID int64) string {
	return fmt.Sprintf("Loading play data (game %d, play %d)...", gameID, playID)
}

// FailureStatus is the status shown when a play could not be loaded.
func FailureStatus(err error) string {
	return "Failed to load animation: " + err.Error()
}

// Load fetches the play and loads it into the target. Controls are disabled
// while the fetch is in flight and stay disabled if it fails.
func (l *Loader) Load(ctx context.Context, gameID, playID int64) error {
	key := play.Key{GameID: gameID, PlayID: playID}
	if !key.Valid() {
		metrics.RecordPlayLoadFailure("invalid_key")
		return fmt.Errorf("%w: game %d, play %d", ErrInvalidPlayKey, gameID, playID)
	}

	log := l.logger.With(
		logger.String("request_id", uuid.NewString()),
		logger.Int64("game_id", gameID),
		logger.Int64("play_id", playID),
	)

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.target.DisableControls(ctx, LoadingStatus(gameID, playID))
	l.mu.Unlock()

	start := time.Now()
	p, err := l.source.FetchPlay(ctx, gameID, playID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		log.Info(ctx, "discarding superseded play load", logger.Duration("took", time.Since(start)))
		return ErrSuperseded
	}

	if err != nil {
		reason := failureReason(err)
		metrics.RecordPlayLoadFailure(reason)
		metrics.RecordErrorByComponent("loader", reason)
		log.Error(ctx, "play load failed", logger.String("reason", reason), logger.Error(err))
		l.target.DisableControls(ctx, FailureStatus(err))
		return err
	}

	l.target.Load(ctx, p)
	metrics.RecordPlayLoaded()
	log.Info(ctx, "play load finished",
		logger.Int("samples", len(p.Samples)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

func failureReason(err error) string {
	var se *backend.ServerError
	switch {
	case errors.As(err, &se):
		return "server_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, backend.ErrDecode):
		return "decode_error"
	default:
		return "fetch_error"
	}
}
