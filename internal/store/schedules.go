package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ScheduleEntry returns the entry for the given date key together with its
// ordered time windows, or ErrScheduleNotFound.
func (s *Store) ScheduleEntry(ctx context.Context, dateKey string) (*ScheduleEntry, error) {
	var entry ScheduleEntry
	err := s.db.QueryRowContext(ctx,
		"SELECT date_key, priority FROM schedules WHERE date_key = ?", dateKey).
		Scan(&entry.DateKey, &entry.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule %q: %w", dateKey, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT start_time, end_time, playlist_id FROM windows WHERE date_key = ? ORDER BY pos", dateKey)
	if err != nil {
		return nil, fmt.Errorf("query windows for %q: %w", dateKey, err)
	}
	defer rows.Close()

	for rows.Next() {
		var w TimeWindow
		if err := rows.Scan(&w.Start, &w.End, &w.PlaylistID); err != nil {
			return nil, fmt.Errorf("scan window for %q: %w", dateKey, err)
		}
		entry.Windows = append(entry.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &entry, nil
}
