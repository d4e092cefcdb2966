package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ApplyConfig writes one remote configuration generation in a single
// transaction:
//
//   - songs referenced by the config but unseen locally are inserted as
//     pending; already-known songs keep their download state
//   - songs absent from the config are pruned
//   - schedule and playlist tables are cleared and rewritten wholesale
//   - the version token is advanced when the update carries one
//
// The transaction boundary is the replace-wholesale contract: concurrent
// readers see either the previous generation or the new one, never a
// partially cleared table.
func (s *Store) ApplyConfig(ctx context.Context, u ConfigUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, song := range u.Songs {
			var exists int
			err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM songs WHERE id = ?", song.ID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check song %d: %w", song.ID, err)
			}
			if exists > 0 {
				continue
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO songs (id, title, md5, url, size, local_path, status)
				 VALUES (?, ?, ?, ?, ?, '', ?)`,
				song.ID, song.Title, song.MD5, song.URL, song.Size, StatusPending)
			if err != nil {
				return fmt.Errorf("insert song %d: %w", song.ID, err)
			}
		}

		if err := pruneObsoleteSongs(ctx, tx, u.Songs); err != nil {
			return err
		}

		for _, stmt := range []string{
			"DELETE FROM windows", "DELETE FROM schedules",
			"DELETE FROM playlist_songs", "DELETE FROM playlists",
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear tables: %w", err)
			}
		}

		for _, entry := range u.Schedules {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schedules (date_key, priority) VALUES (?, ?)",
				entry.DateKey, entry.Priority)
			if err != nil {
				return fmt.Errorf("insert schedule %q: %w", entry.DateKey, err)
			}
			for pos, w := range entry.Windows {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO windows (date_key, pos, start_time, end_time, playlist_id)
					 VALUES (?, ?, ?, ?, ?)`,
					entry.DateKey, pos, w.Start, w.End, w.PlaylistID)
				if err != nil {
					return fmt.Errorf("insert window %q[%d]: %w", entry.DateKey, pos, err)
				}
			}
		}

		for _, p := range u.Playlists {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO playlists (id, name, mode) VALUES (?, ?, ?)",
				p.ID, p.Name, p.Mode)
			if err != nil {
				return fmt.Errorf("insert playlist %d: %w", p.ID, err)
			}
			for pos, songID := range p.SongIDs {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO playlist_songs (playlist_id, pos, song_id)
					 VALUES (?, ?, ?)`,
					p.ID, pos, songID)
				if err != nil {
					return fmt.Errorf("insert playlist %d song %d: %w", p.ID, songID, err)
				}
			}
		}

		if u.Version != "" {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO config (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				KeyConfigVersion, u.Version)
			if err != nil {
				return fmt.Errorf("advance version: %w", err)
			}
		}
		return nil
	})
}

// pruneObsoleteSongs deletes songs whose ids are absent from the new
// configuration generation.
func pruneObsoleteSongs(ctx context.Context, tx *sql.Tx, valid []Song) error {
	if len(valid) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM songs"); err != nil {
			return fmt.Errorf("prune songs: %w", err)
		}
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(valid)), ",")
	args := make([]any, len(valid))
	for i, song := range valid {
		args[i] = song.ID
	}
	_, err := tx.ExecContext(ctx,
		"DELETE FROM songs WHERE id NOT IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("prune songs: %w", err)
	}
	return nil
}
