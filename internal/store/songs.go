package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const songColumns = "id, title, md5, url, size, local_path, status"

func scanSong(row interface{ Scan(...any) error }) (Song, error) {
	var s Song
	err := row.Scan(&s.ID, &s.Title, &s.MD5, &s.URL, &s.Size, &s.LocalPath, &s.Status)
	return s, err
}

// Song returns the record for the given id, or ErrSongNotFound.
func (s *Store) Song(ctx context.Context, id int) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+songColumns+" FROM songs WHERE id = ?", id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query song %d: %w", id, err)
	}
	return &song, nil
}

// PendingSongs returns all songs not yet ready, in id order.
func (s *Store) PendingSongs(ctx context.Context) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+songColumns+" FROM songs WHERE status != ? ORDER BY id", StatusReady)
	if err != nil {
		return nil, fmt.Errorf("query pending songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// AllSongs returns every song record, in id order.
func (s *Store) AllSongs(ctx context.Context) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+songColumns+" FROM songs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// CountPending returns the number of songs not yet ready.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM songs WHERE status != ?", StatusReady).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending songs: %w", err)
	}
	return n, nil
}

// SetSongStatus updates only the status column of a song.
func (s *Store) SetSongStatus(ctx context.Context, id int, status SongStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE songs SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("set song %d status: %w", id, err)
	}
	return nil
}

// MarkSongReady records the verified local path and flips the song to ready.
func (s *Store) MarkSongReady(ctx context.Context, id int, localPath string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE songs SET status = ?, local_path = ? WHERE id = ?",
		StatusReady, localPath, id)
	if err != nil {
		return fmt.Errorf("mark song %d ready: %w", id, err)
	}
	return nil
}
