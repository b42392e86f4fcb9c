package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// FavoriteRepository handles the favorites side-table. A row's presence is
// the entire "is favorited" semantic; its lifecycle is independent of the
// media cache and dangling rows are tolerated.
type FavoriteRepository struct {
	db      *sql.DB
	changes *Changes
}

// NewFavoriteRepository creates a new FavoriteRepository
func NewFavoriteRepository(db *sql.DB, changes *Changes) *FavoriteRepository {
	return &FavoriteRepository{db: db, changes: changes}
}

// Set marks the media id as favorited. Idempotent.
func (r *FavoriteRepository) Set(ctx context.Context, mediaID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (media_id) VALUES (?)`, mediaID)
	if err != nil {
		return fmt.Errorf("set favorite %d: %w", mediaID, err)
	}
	r.changes.Notify(TopicFavorites)
	return nil
}

// Unset removes the favorite mark. Idempotent.
func (r *FavoriteRepository) Unset(ctx context.Context, mediaID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE media_id = ?`, mediaID)
	if err != nil {
		return fmt.Errorf("unset favorite %d: %w", mediaID, err)
	}
	r.changes.Notify(TopicFavorites)
	return nil
}

// IsSet reports whether the media id is favorited
func (r *FavoriteRepository) IsSet(ctx context.Context, mediaID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE media_id = ?`, mediaID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IDs returns the full favorite set
func (r *FavoriteRepository) IDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT media_id FROM favorites`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
