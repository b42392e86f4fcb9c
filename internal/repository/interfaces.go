package repository

import (
	"context"

	"github.com/photonav/gallery/internal/models"
)

// MediaKind narrows a listing to one media class.
type MediaKind int

const (
	KindAny MediaKind = iota
	KindImages
	KindVideos
)

// ListOptions parameterizes a media listing. Zero values mean "no filter".
// Detected search filters map onto these fields through the routing table in
// the query package.
type ListOptions struct {
	Sort          models.SortMode
	Kind          MediaKind
	BucketID      string // "" or models.AlbumAll means no album filter
	FavoritesOnly bool
	NameLike      string  // substring match on display_name
	LabelIDs      []int64 // ids whose ML labels matched; OR-combined with NameLike
	PathLike      string  // substring match on path (screenshot/camera routes)
	GIFOnly       bool
	DateStartMs   int64 // [start, end) in epoch millis; 0 means unbounded
	DateEndMs     int64
	MinSize       int64 // inclusive, bytes
	MaxSize       int64 // exclusive, bytes; 0 means unbounded
}

// MediaRepo defines the interface for media cache persistence
type MediaRepo interface {
	UpsertAll(ctx context.Context, records []models.MediaRecord) error
	PruneMissing(ctx context.Context, keep []int64) (int, error)
	GetByID(ctx context.Context, id int64) (*models.MediaItem, error)
	List(ctx context.Context, opts ListOptions) ([]models.MediaItem, error)
	IDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
}

// FavoriteRepo defines the interface for the favorites side-table
type FavoriteRepo interface {
	Set(ctx context.Context, mediaID int64) error
	Unset(ctx context.Context, mediaID int64) error
	IsSet(ctx context.Context, mediaID int64) (bool, error)
	IDs(ctx context.Context) (map[int64]bool, error)
}

// LabelRepo defines the interface for the ML-label side-table
type LabelRepo interface {
	Upsert(ctx context.Context, rec *models.LabelRecord) error
	Get(ctx context.Context, mediaID int64) (*models.LabelRecord, error)
	SearchIDs(ctx context.Context, term string) (map[int64]bool, error)
	ProcessedIDs(ctx context.Context) ([]int64, error)
	Delete(ctx context.Context, mediaID int64) error
	SubtractLabel(ctx context.Context, mediaID int64, label string) error
	PruneExcept(ctx context.Context, keep []int64) (int, error)
}

// SettingsRepo defines the interface for persisted key-value preferences
type SettingsRepo interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}
