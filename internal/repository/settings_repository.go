package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SettingsRepository persists named preferences as key-value pairs. Reads
// flow back to subscribers through the settings topic on the change bus.
type SettingsRepository struct {
	db      *sql.DB
	changes *Changes
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *sql.DB, changes *Changes) *SettingsRepository {
	return &SettingsRepository{db: db, changes: changes}
}

// Get retrieves a setting value; the second return reports presence
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes a setting value and notifies subscribers
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	r.changes.Notify(TopicSettings)
	return nil
}

// All returns every persisted setting
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
