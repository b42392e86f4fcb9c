package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photonav/gallery/internal/models"
)

// LabelRepository handles the ML-label side-table. Rows are produced by the
// labeling collaborator and consumed read-only by search; the only local
// mutations are pruning and label subtraction.
type LabelRepository struct {
	db      *sql.DB
	changes *Changes
}

// NewLabelRepository creates a new LabelRepository
func NewLabelRepository(db *sql.DB, changes *Changes) *LabelRepository {
	return &LabelRepository{db: db, changes: changes}
}

// Upsert writes a label record keyed by media id
func (r *LabelRepository) Upsert(ctx context.Context, rec *models.LabelRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO labels (media_id, labels, labels_with_confidence, processed_timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(media_id) DO UPDATE SET
			labels = excluded.labels,
			labels_with_confidence = excluded.labels_with_confidence,
			processed_timestamp = excluded.processed_timestamp
	`, rec.MediaID, strings.ToLower(rec.Labels), rec.LabelsWithConfidence, rec.ProcessedTimestamp)
	if err != nil {
		return fmt.Errorf("upsert labels %d: %w", rec.MediaID, err)
	}
	r.changes.Notify(TopicLabels)
	return nil
}

// Get retrieves the label record for a media id, nil when unlabeled
func (r *LabelRepository) Get(ctx context.Context, mediaID int64) (*models.LabelRecord, error) {
	var rec models.LabelRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT media_id, labels, labels_with_confidence, processed_timestamp
		FROM labels WHERE media_id = ?
	`, mediaID).Scan(&rec.MediaID, &rec.Labels, &rec.LabelsWithConfidence, &rec.ProcessedTimestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SearchIDs returns the ids whose accumulated labels contain the term
func (r *LabelRepository) SearchIDs(ctx context.Context, term string) (map[int64]bool, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	ids := make(map[int64]bool)
	if term == "" {
		return ids, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT media_id FROM labels WHERE labels LIKE ?`, "%"+term+"%")
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

// ProcessedIDs returns every media id that has been labeled
func (r *LabelRepository) ProcessedIDs(ctx context.Context) ([]int64, error) {
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

// Delete removes the label record for a media id
func (r *LabelRepository) Delete(ctx context.Context, mediaID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM labels WHERE media_id = ?`, mediaID)
	if err != nil {
		return fmt.Errorf("delete labels %d: %w", mediaID, err)
	}
	r.changes.Notify(TopicLabels)
	return nil
}

// SubtractLabel removes one label from a record, used when the user hides an
// item from a derived smart-album. The row itself is deleted only when no
// labels remain.
func (r *LabelRepository) SubtractLabel(ctx context.Context, mediaID int64, label string) error {
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

// PruneExcept deletes label rows whose media ids are not in keep
func (r *LabelRepository) PruneExcept(ctx context.Context, keep []int64) (int, error) {
	var result sql.Result
	var err error

	if len(keep) == 0 {
		result, err = r.db.ExecContext(ctx, `DELETE FROM labels`)
	} else {
		placeholders := make([]string, len(keep))
		args := make([]interface{}, len(keep))
		for i, id := range keep {
			placeholders[i] = "?"
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
