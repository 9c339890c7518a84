// Package store persists analyzed games and the scoring opportunities
// detected in them to a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed opportunity store. It is safe for
// concurrent use.
type Store struct {
	sqlDB *sql.DB
	log   zerolog.Logger

	// generation increments on every committed write, so read-side
	// caches can tell whether a cached aggregate is still current.
	generation int64
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Str("path", cleanPath).Msg("opportunity store opened")
	return &Store{sqlDB: sqlDB, log: log}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Generation returns a token that changes whenever the store is
// written to.
func (s *Store) Generation() int64 {
	return atomic.LoadInt64(&s.generation)
}

func (s *Store) bumpGeneration() {
	atomic.AddInt64(&s.generation, 1)
}

// Stats summarizes store contents for health reporting.
type Stats struct {
	Players       int `json:"players"`
	Games         int `json:"games"`
	Opportunities int `json:"opportunities"`
}

// Counts returns row counts across the whole store.
func (s *Store) Counts(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(DISTINCT username) FROM games),
		        (SELECT COUNT(*) FROM games),
		        (SELECT COUNT(*) FROM opportunities)`)
	if err := row.Scan(&st.Players, &st.Games, &st.Opportunities); err != nil {
		return Stats{}, fmt.Errorf("count store rows: %w", err)
	}
	return st, nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
