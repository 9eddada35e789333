package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/revision-tracker/internal/revision"
)

var _ revision.ThresholdStore = (*DB)(nil)

const thresholdKey = "revision_threshold_days"

// LoadThresholdDays reads the persisted revision threshold.
// A value that is not an integer is reported as absent.
func (db *DB) LoadThresholdDays(ctx context.Context) (int, bool, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, thresholdKey,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("sqlite: reading %s: %w", thresholdKey, err)
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, nil
	}
	return days, true, nil
}

// SaveThresholdDays upserts the revision threshold.
func (db *DB) SaveThresholdDays(ctx context.Context, days int) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		thresholdKey, strconv.Itoa(days), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving %s: %w", thresholdKey, err)
	}
	return nil
}
