package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photonav/gallery/internal/models"
)

func newTestDB(t *testing.T) (*sql.DB, *Changes) {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewChanges()
}

func record(id int64, name string, dateAdded int64, size int64, isVideo bool) models.MediaRecord {
	return models.MediaRecord{
		ID:          id,
		URI:         "content://media/" + name,
		DisplayName: name,
		DateAdded:   dateAdded,
		Size:        size,
		IsVideo:     isVideo,
		Path:        "/storage/DCIM/" + name,
	}
}

func seedMedia(t *testing.T, repo *MediaRepository) []models.MediaRecord {
	t.Helper()
	records := []models.MediaRecord{
		record(1, "beach.jpg", 1000, 10, false),
		record(2, "video.mp4", 2000, 900, true),
		record(3, "Alps.jpg", 3000, 50, false),
		record(4, "zebra.gif", 1000, 5, false),
	}
	require.NoError(t, repo.UpsertAll(context.Background(), records))
	return records
}

func TestUpsertAllIsIdempotent(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()

	records := seedMedia(t, repo)
	first, err := repo.List(ctx, ListOptions{})
	require.NoError(t, err)

	// A second pass with identical input yields a byte-identical snapshot.
	require.NoError(t, repo.UpsertAll(ctx, records))
	second, err := repo.List(ctx, ListOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(records), n)
}

func TestUpsertValidatesRecords(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()

	err := repo.UpsertAll(ctx, []models.MediaRecord{record(0, "x.jpg", 1, 1, false)})
	assert.ErrorIs(t, err, models.ErrInvalidMediaID)

	bad := record(9, "y.jpg", 1, 1, false)
	bad.URI = ""
	err = repo.UpsertAll(ctx, []models.MediaRecord{bad})
	assert.ErrorIs(t, err, models.ErrEmptyURI)
}

func TestPruneMissingRemovesAbsentIDs(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo)

	n, err := repo.PruneMissing(ctx, []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := repo.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestFavoritesJoinAnnotation(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	favs := NewFavoriteRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo)

	require.NoError(t, favs.Set(ctx, 2))

	// The flag annotates every view through the left join.
	all, err := repo.List(ctx, ListOptions{})
	require.NoError(t, err)
	for _, item := range all {
		assert.Equal(t, item.ID == 2, item.IsFavorite, "item %d", item.ID)
	}

	// The favorites view contains exactly the marked rows.
	favView, err := repo.List(ctx, ListOptions{FavoritesOnly: true})
	require.NoError(t, err)
	require.Len(t, favView, 1)
	assert.Equal(t, int64(2), favView[0].ID)

	// Toggle off restores pre-toggle membership everywhere.
	require.NoError(t, favs.Unset(ctx, 2))
	favView, err = repo.List(ctx, ListOptions{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Empty(t, favView)

	all2, err := repo.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all2, len(all))
	for _, item := range all2 {
		assert.False(t, item.IsFavorite)
	}
}

func TestDanglingFavoriteNeverSurfaces(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	favs := NewFavoriteRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo)

	require.NoError(t, favs.Set(ctx, 4))
	_, err := repo.PruneMissing(ctx, []int64{1, 2, 3})
	require.NoError(t, err)

	favView, err := repo.List(ctx, ListOptions{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Empty(t, favView)
}

func TestSortModesArePermutationsOfTheSameSet(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()
	records := seedMedia(t, repo)

	for _, mode := range models.SortModes {
		t.Run(string(mode), func(t *testing.T) {
			items, err := repo.List(ctx, ListOptions{Sort: mode})
			require.NoError(t, err)
			require.Len(t, items, len(records))

			ids := make(map[int64]bool)
			for _, item := range items {
				ids[item.ID] = true
			}
			assert.Len(t, ids, len(records), "no items gained or lost")
		})
	}
}

func TestSortDateTiesBreakByID(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo) // ids 1 and 4 share dateAdded 1000

	items, err := repo.List(ctx, ListOptions{Sort: models.SortDateDesc})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, int64(4), items[2].ID, "date tie breaks by id descending")
	assert.Equal(t, int64(1), items[3].ID)

	items, err = repo.List(ctx, ListOptions{Sort: models.SortDateAsc})
	require.NoError(t, err)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(4), items[1].ID)
}

func TestSortNameIsCaseInsensitive(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo)

	items, err := repo.List(ctx, ListOptions{Sort: models.SortNameAsc})
	require.NoError(t, err)
	assert.Equal(t, "Alps.jpg", items[0].DisplayName)
	assert.Equal(t, "beach.jpg", items[1].DisplayName)
}

func TestListFilters(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo)

	videos, err := repo.List(ctx, ListOptions{Kind: KindVideos})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.True(t, videos[0].IsVideo)

	gifs, err := repo.List(ctx, ListOptions{GIFOnly: true})
	require.NoError(t, err)
	require.Len(t, gifs, 1)
	assert.Equal(t, int64(4), gifs[0].ID)

	big, err := repo.List(ctx, ListOptions{MinSize: 100})
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, int64(2), big[0].ID)

	window, err := repo.List(ctx, ListOptions{DateStartMs: 1500 * 1000, DateEndMs: 2500 * 1000})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, int64(2), window[0].ID)
}

func TestNameSearchCombinesWithLabelIDs(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()
	seedMedia(t, repo)

	// "beach" matches id 1 by name; id 3 arrives via a label hit.
	items, err := repo.List(ctx, ListOptions{NameLike: "beach", LabelIDs: []int64{3}})
	require.NoError(t, err)
	ids := []int64{}
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)
	ctx := context.Background()

	item, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestChangeBusNotifiesOnWrites(t *testing.T) {
	db, changes := newTestDB(t)
	repo := NewMediaRepository(db, changes)

	sub := changes.Subscribe(TopicMedia)
	seedMedia(t, repo)

	select {
	case <-sub:
	default:
		t.Fatal("expected a media change notification after upsert")
	}
}
