package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/domain/tracking"
	"github.com/okian/playview/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	game_id    INTEGER NOT NULL,
	play_id    INTEGER NOT NULL,
	metadata   TEXT    NOT NULL,
	samples    TEXT    NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (game_id, play_id)
);`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

// NewSQLiteStore opens (creating if needed) the cache database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open play cache: %w", err)
	}
	// One connection keeps in-memory databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("play_cache")
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init play cache schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key play.Key) (play.Play, error) {
	if !key.Valid() {
		return play.Play{}, ErrInvalidKey
	}

	var mdJSON, samplesJSON string
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata, samples, fetched_at FROM plays WHERE game_id = ? AND play_id = ?`,
		key.GameID, key.PlayID,
	).Scan(&mdJSON, &samplesJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return play.Play{}, ErrNotFound
	}
	if err != nil {
		return play.Play{}, fmt.Errorf("query play cache: %w", err)
	}

	if s.ttl > 0 && s.now().Sub(time.Unix(0, fetchedAt)) > s.ttl {
		return play.Play{}, ErrNotFound
	}

	var p play.Play
	if err := json.Unmarshal([]byte(mdJSON), &p.Metadata); err != nil {
		return play.Play{}, fmt.Errorf("decode cached metadata: %w", err)
	}
	var samples []tracking.Sample
	if err := json.Unmarshal([]byte(samplesJSON), &samples); err != nil {
		return play.Play{}, fmt.Errorf("decode cached samples: %w", err)
	}
	p.Samples = samples
	return p, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p play.Play) error {
	key := p.Key()
	if !key.Valid() {
		return ErrInvalidKey
	}

	md, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	samples := p.Samples
	if samples == nil {
		samples = []tracking.Sample{}
	}
	sj, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode samples: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plays (game_id, play_id, metadata, samples, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_id, play_id) DO UPDATE SET
			metadata = excluded.metadata,
			samples = excluded.samples,
			fetched_at = excluded.fetched_at`,
		key.GameID, key.PlayID, string(md), string(sj), s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store play: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plays: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
