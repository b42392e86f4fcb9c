package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/photonav/gallery/internal/models"
)

// Postgres implementations of the favorites, labels, and settings
// repositories. Behavior matches the SQLite variants.

type FavoriteRepositoryPostgres struct {
	db      *sql.DB
	changes *Changes
}

func NewFavoriteRepositoryPostgres(db *sql.DB, changes *Changes) *FavoriteRepositoryPostgres {
	return &FavoriteRepositoryPostgres{db: db, changes: changes}
}

func (r *FavoriteRepositoryPostgres) Set(ctx context.Context, mediaID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (media_id) VALUES ($1) ON CONFLICT (media_id) DO NOTHING`, mediaID)
	if err != nil {
		return fmt.Errorf("set favorite %d: %w", mediaID, err)
	}
	r.changes.Notify(TopicFavorites)
	return nil
}

func (r *FavoriteRepositoryPostgres) Unset(ctx context.Context, mediaID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE media_id = $1`, mediaID)
	if err != nil {
		return fmt.Errorf("unset favorite %d: %w", mediaID, err)
	}
	r.changes.Notify(TopicFavorites)
	return nil
}

func (r *FavoriteRepositoryPostgres) IsSet(ctx context.Context, mediaID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE media_id = $1`, mediaID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *FavoriteRepositoryPostgres) IDs(ctx context.Context) (map[int64]bool, error) {
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

type LabelRepositoryPostgres struct {
	db      *sql.DB
	changes *Changes
}

func NewLabelRepositoryPostgres(db *sql.DB, changes *Changes) *LabelRepositoryPostgres {
	return &LabelRepositoryPostgres{db: db, changes: changes}
}

func (r *LabelRepositoryPostgres) Upsert(ctx context.Context, rec *models.LabelRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO labels (media_id, labels, labels_with_confidence, processed_timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (media_id) DO UPDATE SET
			labels = EXCLUDED.labels,
			labels_with_confidence = EXCLUDED.labels_with_confidence,
			processed_timestamp = EXCLUDED.processed_timestamp
	`, rec.MediaID, strings.ToLower(rec.Labels), rec.LabelsWithConfidence, rec.ProcessedTimestamp)
	if err != nil {
		return fmt.Errorf("upsert labels %d: %w", rec.MediaID, err)
	}
	r.changes.Notify(TopicLabels)
	return nil
}

func (r *LabelRepositoryPostgres) Get(ctx context.Context, mediaID int64) (*models.LabelRecord, error) {
	var rec models.LabelRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT media_id, labels, labels_with_confidence, processed_timestamp
		FROM labels WHERE media_id = $1
	`, mediaID).Scan(&rec.MediaID, &rec.Labels, &rec.LabelsWithConfidence, &rec.ProcessedTimestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *LabelRepositoryPostgres) SearchIDs(ctx context.Context, term string) (map[int64]bool, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	ids := make(map[int64]bool)
	if term == "" {
		return ids, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT media_id FROM labels WHERE labels LIKE $1`, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("search labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *LabelRepositoryPostgres) ProcessedIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT media_id FROM labels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *LabelRepositoryPostgres) Delete(ctx context.Context, mediaID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM labels WHERE media_id = $1`, mediaID)
	if err != nil {
		return fmt.Errorf("delete labels %d: %w", mediaID, err)
	}
	r.changes.Notify(TopicLabels)
	return nil
}

func (r *LabelRepositoryPostgres) SubtractLabel(ctx context.Context, mediaID int64, label string) error {
	rec, err := r.Get(ctx, mediaID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	label = strings.ToLower(strings.TrimSpace(label))
	kept := []string{}
	keptConf := []string{}
	conf := strings.Split(rec.LabelsWithConfidence, ",")
	for i, l := range rec.LabelList() {
		if l == label {
			continue
		}
		kept = append(kept, l)
		if i < len(conf) && strings.TrimSpace(conf[i]) != "" {
			keptConf = append(keptConf, strings.TrimSpace(conf[i]))
		}
	}

	if len(kept) == 0 {
		return r.Delete(ctx, mediaID)
	}

	rec.Labels = strings.Join(kept, ",")
	rec.LabelsWithConfidence = strings.Join(keptConf, ",")
	return r.Upsert(ctx, rec)
}

func (r *LabelRepositoryPostgres) PruneExcept(ctx context.Context, keep []int64) (int, error) {
	var result sql.Result
	var err error

	if len(keep) == 0 {
		result, err = r.db.ExecContext(ctx, `DELETE FROM labels`)
	} else {
		placeholders := make([]string, len(keep))
		args := make([]interface{}, len(keep))
		for i, id := range keep {
			placeholders[i] = dollarPlaceholder(i + 1)
			args[i] = id
		}
		query := `DELETE FROM labels WHERE media_id NOT IN (` + strings.Join(placeholders, ",") + `)`
		result, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("prune labels: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.changes.Notify(TopicLabels)
	}
	return int(n), nil
}

type SettingsRepositoryPostgres struct {
	db      *sql.DB
	changes *Changes
}

func NewSettingsRepositoryPostgres(db *sql.DB, changes *Changes) *SettingsRepositoryPostgres {
	return &SettingsRepositoryPostgres{db: db, changes: changes}
}

func (r *SettingsRepositoryPostgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SettingsRepositoryPostgres) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	r.changes.Notify(TopicSettings)
	return nil
}

func (r *SettingsRepositoryPostgres) All(ctx context.Context) (map[string]string, error) {
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
