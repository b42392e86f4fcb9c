package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photonav/gallery/internal/models"
)

// MediaRepository handles media cache persistence on SQLite
type MediaRepository struct {
	db      *sql.DB
	changes *Changes
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *sql.DB, changes *Changes) *MediaRepository {
	return &MediaRepository{db: db, changes: changes}
}

const mediaItemColumns = `
	m.id, m.uri, m.display_name, m.date_added, m.bucket_id, m.bucket_name,
	m.mime_type, m.width, m.height, m.size, m.duration, m.is_video, m.path,
	CASE WHEN f.media_id IS NULL THEN 0 ELSE 1 END AS is_favorite`

// UpsertAll writes the given records keyed by id (insert-or-replace).
// Running it twice with identical input produces no observable diff.
func (r *MediaRepository) UpsertAll(ctx context.Context, records []models.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO media
		(id, uri, display_name, date_added, bucket_id, bucket_name,
		 mime_type, width, height, size, duration, is_video, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

// PruneMissing deletes cached rows whose ids the index no longer returned.
// Label rows for pruned media go with them; dangling favorites are tolerated
// since they never surface through the left join.
func (r *MediaRepository) PruneMissing(ctx context.Context, keep []int64) (int, error) {
	var result sql.Result
	var err error

	if len(keep) == 0 {
		result, err = r.db.ExecContext(ctx, `DELETE FROM media`)
	} else {
		placeholders := make([]string, len(keep))
		args := make([]interface{}, len(keep))
		for i, id := range keep {
			placeholders[i] = "?"
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

// GetByID retrieves one media item with its favorite flag annotated
func (r *MediaRepository) GetByID(ctx context.Context, id int64) (*models.MediaItem, error) {
	query := `SELECT` + mediaItemColumns + `
		FROM media m
		LEFT JOIN favorites f ON f.media_id = m.id
		WHERE m.id = ?`

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

// List retrieves media items matching the options. Favorites are annotated
// via a left join and only then filtered, so a concurrent unfavorite can
// never drop rows from an unrelated view.
func (r *MediaRepository) List(ctx context.Context, opts ListOptions) ([]models.MediaItem, error) {
	query := `SELECT` + mediaItemColumns + `
		FROM media m
		LEFT JOIN favorites f ON f.media_id = m.id`

	where, args := buildWhere(opts, questionPlaceholder)
	if where != "" {
		query += "\n\t\tWHERE " + where
	}
	query += "\n\t\tORDER BY " + orderClause(opts.Sort)

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

// IDs returns every cached media id
func (r *MediaRepository) IDs(ctx context.Context) ([]int64, error) {
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
func (r *MediaRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&n)
	return n, err
}

// placeholderFunc renders the i-th (1-based) SQL placeholder for a dialect
type placeholderFunc func(i int) string

func questionPlaceholder(int) string { return "?" }

// buildWhere renders the filter fields of ListOptions into a WHERE body.
// Shared between the SQLite and Postgres repositories.
func buildWhere(opts ListOptions, ph placeholderFunc) (string, []interface{}) {
	var conds []string
	var args []interface{}

	next := func() string {
		return ph(len(args))
	}

	switch opts.Kind {
	case KindImages:
		conds = append(conds, "m.is_video = 0")
	case KindVideos:
		conds = append(conds, "m.is_video = 1")
	}

	if opts.BucketID != "" && opts.BucketID != models.AlbumAll {
		args = append(args, opts.BucketID)
		conds = append(conds, "m.bucket_id = "+next())
	}
	if opts.FavoritesOnly {
		conds = append(conds, "f.media_id IS NOT NULL")
	}
	if opts.NameLike != "" || len(opts.LabelIDs) > 0 {
		var sub []string
		if opts.NameLike != "" {
			args = append(args, "%"+strings.ToLower(opts.NameLike)+"%")
			sub = append(sub, "LOWER(m.display_name) LIKE "+next())
		}
		if len(opts.LabelIDs) > 0 {
			placeholders := make([]string, len(opts.LabelIDs))
			for i, id := range opts.LabelIDs {
				args = append(args, id)
				placeholders[i] = ph(len(args))
			}
			sub = append(sub, "m.id IN ("+strings.Join(placeholders, ",")+")")
		}
		conds = append(conds, "("+strings.Join(sub, " OR ")+")")
	}
	if opts.PathLike != "" {
		args = append(args, "%"+strings.ToLower(opts.PathLike)+"%")
		conds = append(conds, "(LOWER(m.path) LIKE "+next())
		args = append(args, "%"+strings.ToLower(opts.PathLike)+"%")
		conds[len(conds)-1] += " OR LOWER(m.display_name) LIKE " + next() + ")"
	}
	if opts.GIFOnly {
		conds = append(conds, "(m.mime_type = 'image/gif' OR LOWER(m.display_name) LIKE '%.gif')")
	}
	if opts.DateStartMs > 0 {
		args = append(args, opts.DateStartMs)
		conds = append(conds, "(m.date_added * 1000) >= "+next())
	}
	if opts.DateEndMs > 0 {
		args = append(args, opts.DateEndMs)
		conds = append(conds, "(m.date_added * 1000) < "+next())
	}
	if opts.MinSize > 0 {
		args = append(args, opts.MinSize)
		conds = append(conds, "m.size >= "+next())
	}
	if opts.MaxSize > 0 {
		args = append(args, opts.MaxSize)
		conds = append(conds, "m.size < "+next())
	}
	return strings.Join(conds, " AND "), args
}

// orderClause maps a sort mode to its ORDER BY body. Date and size ties
// break deterministically by id.
func orderClause(mode models.SortMode) string {
	switch mode {
	case models.SortDateAsc:
		return "m.date_added ASC, m.id ASC"
	case models.SortNameAsc:
		return "m.display_name COLLATE NOCASE ASC, m.id ASC"
	case models.SortNameDesc:
		return "m.display_name COLLATE NOCASE DESC, m.id DESC"
	case models.SortSizeDesc:
		return "m.size DESC, m.id DESC"
	case models.SortSizeAsc:
		return "m.size ASC, m.id ASC"
	default: // SortDateDesc and the zero value
		return "m.date_added DESC, m.id DESC"
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMediaItem(row rowScanner) (*models.MediaItem, error) {
	var item models.MediaItem
	var isVideo, isFavorite int
	err := row.Scan(
		&item.ID, &item.URI, &item.DisplayName, &item.DateAdded,
		&item.BucketID, &item.BucketName, &item.MimeType,
		&item.Width, &item.Height, &item.Size, &item.Duration,
		&isVideo, &item.Path, &isFavorite,
	)
	if err != nil {
		return nil, err
	}
	item.IsVideo = isVideo != 0
	item.IsFavorite = isFavorite != 0
	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
