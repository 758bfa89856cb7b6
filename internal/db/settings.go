package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/trawl/internal/errors"
)

// GetEnabled returns the persisted capture flag for source. A source with no
// stored setting is enabled.
func GetEnabled(ctx context.Context, db *sql.DB, source string) (bool, error) {
	var enabled int
	err := db.QueryRowContext(ctx, `SELECT enabled FROM capture_settings WHERE source = ?`, source).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return enabled != 0, nil
}

// SetEnabled persists the capture flag for source.
func SetEnabled(ctx context.Context, db *sql.DB, source string, enabled bool) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO capture_settings (source, enabled, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at
	`, source, boolToInt(enabled), time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
