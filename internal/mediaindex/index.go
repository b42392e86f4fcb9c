// Package mediaindex defines the authoritative media catalog the cache
// mirrors. The application never treats itself as a source of media ids;
// everything flows from an Index implementation.
package mediaindex

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photonav/gallery/internal/models"
)

// Entry is one catalog row, the shape the sync engine converts into a
// cached MediaRecord.
type Entry struct {
	ID          int64
	URI         string
	DisplayName string
	DateAdded   int64 // epoch seconds
	BucketID    *string
	BucketName  *string
	MimeType    string
	Width       int
	Height      int
	Size        int64
	Duration    *int64 // ms, videos only
	IsVideo     bool
	Path        string
}

// Record converts the entry to its cached form.
func (e *Entry) Record() models.MediaRecord {
	return models.MediaRecord{
		ID:          e.ID,
		URI:         e.URI,
		DisplayName: e.DisplayName,
		DateAdded:   e.DateAdded,
		BucketID:    e.BucketID,
		BucketName:  e.BucketName,
		MimeType:    e.MimeType,
		Width:       e.Width,
		Height:      e.Height,
		Size:        e.Size,
		Duration:    e.Duration,
		IsVideo:     e.IsVideo,
		Path:        e.Path,
	}
}

// CopyResult reports the outcome of a bulk copy or move. Completed items
// are never rolled back on partial failure; the summary is what surfaces
// to the user.
type CopyResult struct {
	Success   bool
	Completed int
	Failed    int
	Summary   string
}

// Index is the authoritative media catalog. Queries return the complete
// current state, sorted by date added descending. Mutations that require
// user confirmation return a Confirmation handle; the mutation takes effect
// only when the handle is accepted.
type Index interface {
	QueryImages(ctx context.Context) ([]Entry, error)
	QueryVideos(ctx context.Context) ([]Entry, error)
	QueryTrashed(ctx context.Context) ([]models.TrashedItem, error)

	RequestTrash(ctx context.Context, ids []int64) (*Confirmation, error)
	RequestRestore(ctx context.Context, ids []int64) (*Confirmation, error)
	RequestDelete(ctx context.Context, ids []int64) (*Confirmation, error)

	Copy(ctx context.Context, items []models.MediaItem, destBucketID string) (*CopyResult, error)
	Move(ctx context.Context, items []models.MediaItem, destBucketID string) (*CopyResult, error)
}

// ConfirmationAction identifies what a pending confirmation will do.
type ConfirmationAction string

const (
	ActionTrash           ConfirmationAction = "trash"
	ActionRestore         ConfirmationAction = "restore"
	ActionDelete          ConfirmationAction = "delete"
	ActionPermanentDelete ConfirmationAction = "permanent_delete"
)

// Confirmation is an opaque handle for a mutation that needs user approval.
// The caller presents it, then resolves it exactly once with Accept or
// Cancel. Accept applies the mutation; Cancel is a normal outcome, not an
// error, and leaves the catalog untouched.
type Confirmation struct {
	ID       string
	Action   ConfirmationAction
	MediaIDs []int64

	apply func(ctx context.Context) error

	mu       sync.Mutex
	resolved bool
	done     chan confirmationOutcome
}

type confirmationOutcome struct {
	accepted bool
	err      error
}

// NewConfirmation builds a handle whose apply function runs on accept.
func NewConfirmation(action ConfirmationAction, ids []int64, apply func(ctx context.Context) error) *Confirmation {
	return &Confirmation{
		ID:       uuid.New().String(),
		Action:   action,
		MediaIDs: ids,
		apply:    apply,
		done:     make(chan confirmationOutcome, 1),
	}
}

// Accept applies the pending mutation. Only the first resolution counts.
func (c *Confirmation) Accept(ctx context.Context) error {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return nil
	}
	c.resolved = true
	c.mu.Unlock()

	var err error
	if c.apply != nil {
		err = c.apply(ctx)
	}
	c.done <- confirmationOutcome{accepted: true, err: err}
	return err
}

// Cancel abandons the pending mutation.
func (c *Confirmation) Cancel() {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return
	}
	c.resolved = true
	c.mu.Unlock()

	c.done <- confirmationOutcome{accepted: false}
}

// Wait blocks until the handle is resolved or the context ends. It returns
// whether the mutation was accepted and, if accepted, the apply error. This
// is a true asynchronous boundary: resolution can arrive seconds later.
func (c *Confirmation) Wait(ctx context.Context) (bool, error) {
	select {
	case out := <-c.done:
		return out.accepted, out.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ExpiryWindow is how long trashed items survive before permanent removal.
const ExpiryWindow = 30 * 24 * time.Hour
