// Package store implements bgmd's persistent state on sqlite: song
// records, schedule entries, playlists, and the config key/value table.
// The sync controller and download pipeline write; the resolver and
// orchestrator only read. ApplyConfig is the single transactional
// replacement path, so readers never observe a partially cleared table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrSongNotFound is returned when a song id has no record.
	ErrSongNotFound = errors.New("song not found")
	// ErrPlaylistNotFound is returned when a playlist id has no record.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrScheduleNotFound is returned when a date key has no schedule entry.
	ErrScheduleNotFound = errors.New("schedule entry not found")
)

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema. Use ":memory:" for an ephemeral test store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY between the writer loops.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragmas: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
