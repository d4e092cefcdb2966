package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Well-known config keys.
const (
	// KeyDeviceID holds the device identity token, generated once on
	// first run and never regenerated.
	KeyDeviceID = "device_id"
	// KeyConfigVersion is the freshness cursor sent on every sync request.
	KeyConfigVersion = "config_version"
)

// ConfigValue returns the value for key, or "" if the key is unset.
func (s *Store) ConfigValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM config WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query config %q: %w", key, err)
	}
	return v, nil
}

// SetConfigValue upserts a config key.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}
