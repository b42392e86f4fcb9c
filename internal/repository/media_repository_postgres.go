package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photonav/gallery/internal/models"
)

// MediaRepositoryPostgres is the PostgreSQL implementation of MediaRepo.
// Query shapes match the SQLite repository; only placeholder style and the
// upsert statement differ.
type MediaRepositoryPostgres struct {
	db      *sql.DB
	changes *Changes
}

// NewMediaRepositoryPostgres creates a new MediaRepositoryPostgres
func NewMediaRepositoryPostgres(db *sql.DB, changes *Changes) *MediaRepositoryPostgres {
	return &MediaRepositoryPostgres{db: db, changes: changes}
}

func dollarPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

// UpsertAll writes the given records keyed by id
func (r *MediaRepositoryPostgres) UpsertAll(ctx context.Context, records []models.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media
		(id, uri, display_name, date_added, bucket_id, bucket_name,
		 mime_type, width, height, size, duration, is_video, path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			uri = EXCLUDED.uri,
			display_name = EXCLUDED.display_name,
			date_added = EXCLUDED.date_added,
			bucket_id = EXCLUDED.bucket_id,
			bucket_name = EXCLUDED.bucket_name,
			mime_type = EXCLUDED.mime_type,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			size = EXCLUDED.size,
			duration = EXCLUDED.duration,
			is_video = EXCLUDED.is_video,
			path = EXCLUDED.path
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if rec.ID <= 0 {
			return models.ErrInvalidMediaID
		}
		if rec.URI == "" {
			return models.ErrEmptyURI
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.URI, rec.DisplayName, rec.DateAdded,
			rec.BucketID, rec.BucketName, rec.MimeType,
			rec.Width, rec.Height, rec.Size, rec.Duration,
			boolToInt(rec.IsVideo), rec.Path,
		)
		if err != nil {
			return fmt.Errorf("upsert media %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	r.changes.Notify(TopicMedia)
	return nil
}

// PruneMissing deletes cached rows whose ids the index no longer returned
func (r *MediaRepositoryPostgres) PruneMissing(ctx context.Context, keep []int64) (int, error) {
	var result sql.Result
	var err error

	if len(keep) == 0 {
		result, err = r.db.ExecContext(ctx, `DELETE FROM media`)
	} else {
		placeholders := make([]string, len(keep))
		args := make([]interface{}, len(keep))
		for i, id := range keep {
			placeholders[i] = dollarPlaceholder(i + 1)
			args[i] = id
		}
		query := `DELETE FROM media WHERE id NOT IN (` + strings.Join(placeholders, ",") + `)`
		result, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("prune media: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.changes.Notify(TopicMedia)
	}
	return int(n), nil
}

const mediaItemColumnsPG = `
	m.id, m.uri, m.display_name, m.date_added, m.bucket_id, m.bucket_name,
	m.mime_type, m.width, m.height, m.size, m.duration, m.is_video, m.path,
	CASE WHEN f.media_id IS NULL THEN 0 ELSE 1 END AS is_favorite`

// GetByID retrieves one media item with its favorite flag annotated
func (r *MediaRepositoryPostgres) GetByID(ctx context.Context, id int64) (*models.MediaItem, error) {
	query := `SELECT` + mediaItemColumnsPG + `
		FROM media m
		LEFT JOIN favorites f ON f.media_id = m.id
		WHERE m.id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	item, err := scanMediaItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// List retrieves media items matching the options
func (r *MediaRepositoryPostgres) List(ctx context.Context, opts ListOptions) ([]models.MediaItem, error) {
	query := `SELECT` + mediaItemColumnsPG + `
		FROM media m
		LEFT JOIN favorites f ON f.media_id = m.id`

	where, args := buildWhere(opts, dollarPlaceholder)
	if where != "" {
		query += "\n\t\tWHERE " + where
	}
	query += "\n\t\tORDER BY " + orderClausePG(opts.Sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	items := []models.MediaItem{}
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// orderClausePG matches orderClause but uses LOWER() in place of SQLite's
// NOCASE collation.
func orderClausePG(mode models.SortMode) string {
	switch mode {
	case models.SortDateAsc:
		return "m.date_added ASC, m.id ASC"
	case models.SortNameAsc:
		return "LOWER(m.display_name) ASC, m.id ASC"
	case models.SortNameDesc:
		return "LOWER(m.display_name) DESC, m.id DESC"
	case models.SortSizeDesc:
		return "m.size DESC, m.id DESC"
	case models.SortSizeAsc:
		return "m.size ASC, m.id ASC"
	default:
		return "m.date_added DESC, m.id DESC"
	}
}

// IDs returns every cached media id
func (r *MediaRepositoryPostgres) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM media`)
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

// Count returns the total number of cached records
func (r *MediaRepositoryPostgres) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&n)
	return n, err
}
