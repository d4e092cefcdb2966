package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Playlist returns the playlist with its ordered song ids, or
// ErrPlaylistNotFound.
func (s *Store) Playlist(ctx context.Context, id int) (*Playlist, error) {
	var p Playlist
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, mode FROM playlists WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Mode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query playlist %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY pos", id)
	if err != nil {
		return nil, fmt.Errorf("query playlist %d songs: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var songID int
		if err := rows.Scan(&songID); err != nil {
			return nil, fmt.Errorf("scan playlist %d song: %w", id, err)
		}
		p.SongIDs = append(p.SongIDs, songID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}
