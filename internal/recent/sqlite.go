// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/hlswatch/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS recent_streams (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	quality TEXT NOT NULL,
	is_live INTEGER NOT NULL DEFAULT 1,
	viewed_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recent_viewed ON recent_streams(viewed_at_ms DESC, seq DESC);
`

// SQLiteStore persists entries in a single table.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string, capacity int) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, sqliteSchemaVersion, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recent store: migration failed: %w", err)
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &SQLiteStore{db: db, capacity: capacity}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, st Stream) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recent_streams (id, url, title, quality, is_live, viewed_at_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		st.ID, st.URL, st.Title, st.Quality, st.IsLive, st.ViewedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", ErrUnavailable, err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM recent_streams WHERE seq NOT IN (
			SELECT seq FROM recent_streams ORDER BY viewed_at_ms DESC, seq DESC LIMIT ?
		)`, s.capacity)
	if err != nil {
		return fmt.Errorf("%w: trim: %v", ErrUnavailable, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Stream, error) {
	if limit <= 0 {
		limit = s.capacity
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, quality, is_live, viewed_at_ms FROM recent_streams
		ORDER BY viewed_at_ms DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	out := []Stream{}
	for rows.Next() {
		var (
			st   Stream
			ms   int64
			live bool
		)
		if err := rows.Scan(&st.ID, &st.URL, &st.Title, &st.Quality, &live, &ms); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}
		st.IsLive = live
		st.ViewedAt = time.UnixMilli(ms).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	issues, err := sqlite.QuickCheck(ctx, s.db)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: integrity: %v", ErrUnavailable, issues)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
