package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/repository"
)

type libraryFixture struct {
	lib    *Library
	media  *repository.MediaRepository
	favs   *repository.FavoriteRepository
	labels *repository.LabelRepository
}

func newLibraryFixture(t *testing.T) *libraryFixture {
	t.Helper()
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	changes := repository.NewChanges()
	media := repository.NewMediaRepository(db, changes)
	favs := repository.NewFavoriteRepository(db, changes)
	labels := repository.NewLabelRepository(db, changes)

	lib := NewLibrary(media, favs, labels, changes,
		WithSearchDebounce(30*time.Millisecond),
		WithClock(func() time.Time {
			return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	lib.Start(ctx)
	t.Cleanup(func() { lib.Close(); cancel() })

	return &libraryFixture{lib: lib, media: media, favs: favs, labels: labels}
}

func seedLibrary(t *testing.T, fx *libraryFixture) {
	t.Helper()
	b1, b2 := "b1", "b2"
	camera, shots := "Camera", "Screenshots"
	records := []models.MediaRecord{
		{ID: 1, URI: "u1", DisplayName: "beach.jpg", DateAdded: 1000, Size: 10,
			BucketID: &b1, BucketName: &camera, Path: "/dcim/beach.jpg"},
		{ID: 2, URI: "u2", DisplayName: "boat.mp4", DateAdded: 2000, Size: 900,
			BucketID: &b1, BucketName: &camera, IsVideo: true, Path: "/dcim/boat.mp4"},
		{ID: 3, URI: "u3", DisplayName: "alps.jpg", DateAdded: 3000, Size: 50,
			BucketID: &b2, BucketName: &shots, Path: "/shots/alps.jpg"},
	}
	require.NoError(t, fx.media.UpsertAll(context.Background(), records))
}

func awaitItems(t *testing.T, ch <-chan []models.MediaItem, match func([]models.MediaItem) bool) []models.MediaItem {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case items := <-ch:
			if match(items) {
				return items
			}
		case <-deadline:
			t.Fatal("view never reached the expected state")
		}
	}
}

func TestNothingRecomputesBeforeReady(t *testing.T) {
	fx := newLibraryFixture(t)
	sub := fx.lib.AllMedia().Subscribe()
	defer sub.Cancel()

	seedLibrary(t, fx) // notifies the change bus, but the gate is closed

	select {
	case <-sub.C:
		t.Fatal("view emitted before MarkReady")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestMarkReadyRunsFirstPassAndTracksStoreChanges(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)

	sub := fx.lib.AllMedia().Subscribe()
	defer sub.Cancel()

	fx.lib.MarkReady()
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 3 })

	// A later store write flows through without any manual refresh.
	require.NoError(t, fx.media.UpsertAll(context.Background(), []models.MediaRecord{
		{ID: 4, URI: "u4", DisplayName: "new.jpg", DateAdded: 4000},
	}))
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 4 })
}

func TestLoadingFlipsOnFirstNonEmptyEmission(t *testing.T) {
	fx := newLibraryFixture(t)
	loading, ok := fx.lib.Loading().Get()
	require.True(t, ok)
	require.True(t, loading)

	seedLibrary(t, fx)
	fx.lib.MarkReady()

	require.Eventually(t, func() bool {
		v, _ := fx.lib.Loading().Get()
		return !v
	}, 2*time.Second, 5*time.Millisecond)
}

func TestForceLoadedClearsSpinnerWithoutData(t *testing.T) {
	fx := newLibraryFixture(t)
	fx.lib.ForceLoaded()
	v, _ := fx.lib.Loading().Get()
	assert.False(t, v)
}

func TestTypedViewsSplitByKind(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	imgSub := fx.lib.Images().Subscribe()
	defer imgSub.Cancel()
	imgs := awaitItems(t, imgSub.C, func(items []models.MediaItem) bool { return len(items) == 2 })
	for _, it := range imgs {
		assert.False(t, it.IsVideo)
	}

	vidSub := fx.lib.Videos().Subscribe()
	defer vidSub.Cancel()
	vids := awaitItems(t, vidSub.C, func(items []models.MediaItem) bool { return len(items) == 1 })
	assert.True(t, vids[0].IsVideo)
}

func TestAlbumFilterNarrowsTheAlbumView(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.AlbumMedia().Subscribe()
	defer sub.Cancel()
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 3 })

	fx.lib.SetAlbumFilter("b2")
	items := awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 1 })
	assert.Equal(t, int64(3), items[0].ID)

	fx.lib.SetAlbumFilter("") // empty resets to the unfiltered sentinel
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 3 })
}

func TestSortModeSwitchReordersWithoutChangingMembership(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.AllMedia().Subscribe()
	defer sub.Cancel()
	items := awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 3 })
	assert.Equal(t, int64(3), items[0].ID, "default is date descending")

	fx.lib.SetSortMode(models.SortNameAsc)
	items = awaitItems(t, sub.C, func(items []models.MediaItem) bool {
		return len(items) == 3 && items[0].DisplayName == "alps.jpg"
	})
	assert.Equal(t, "beach.jpg", items[1].DisplayName)
	assert.Equal(t, "boat.mp4", items[2].DisplayName)
}

func TestInvalidSortModeIsIgnored(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.AllMedia().Subscribe()
	defer sub.Cancel()
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 3 })

	fx.lib.SetSortMode("shuffled")
	select {
	case <-sub.C:
		t.Fatal("invalid sort mode triggered a recompute")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestToggleFavoriteRoundTripsThroughTheView(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()
	ctx := context.Background()

	sub := fx.lib.Favorites().Subscribe()
	defer sub.Cancel()
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 0 })

	require.NoError(t, fx.lib.ToggleFavorite(ctx, 2))
	items := awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 1 })
	assert.Equal(t, int64(2), items[0].ID)
	assert.True(t, items[0].IsFavorite)

	require.NoError(t, fx.lib.ToggleFavorite(ctx, 2))
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 0 })
}

func TestSearchDebounceRunsOnlyTheLastKeystroke(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	allSub := fx.lib.AllMedia().Subscribe()
	awaitItems(t, allSub.C, func(items []models.MediaItem) bool { return len(items) == 3 })
	allSub.Cancel()

	sub := fx.lib.SearchResults().Subscribe()
	defer sub.Cancel()

	// Each keystroke supersedes the previous one inside the debounce window.
	fx.lib.SetSearchQuery("a")
	fx.lib.SetSearchQuery("al")
	fx.lib.SetSearchQuery("alps")

	items := awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 1 })
	assert.Equal(t, "alps.jpg", items[0].DisplayName)

	// No trailing emission from the cancelled keystrokes.
	select {
	case extra := <-sub.C:
		t.Fatalf("superseded keystroke published %d results", len(extra))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSearchAfterShutdownNeverPublishes(t *testing.T) {
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	changes := repository.NewChanges()
	media := repository.NewMediaRepository(db, changes)
	favs := repository.NewFavoriteRepository(db, changes)
	labels := repository.NewLabelRepository(db, changes)

	lib := NewLibrary(media, favs, labels, changes, WithSearchDebounce(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	lib.Start(ctx)

	require.NoError(t, media.UpsertAll(context.Background(), []models.MediaRecord{
		{ID: 1, URI: "u1", DisplayName: "beach.jpg", DateAdded: 1000},
	}))
	lib.MarkReady()

	allSub := lib.AllMedia().Subscribe()
	awaitItems(t, allSub.C, func(items []models.MediaItem) bool { return len(items) == 1 })
	allSub.Cancel()

	sub := lib.SearchResults().Subscribe()
	defer sub.Cancel()

	// Teardown cancels the run context; a keystroke arriving afterwards
	// debounces into a query that is already cancelled.
	cancel()
	lib.Close()
	lib.SetSearchQuery("beach")

	select {
	case items := <-sub.C:
		t.Fatalf("search published %d results after shutdown", len(items))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClearingSearchPublishesEmptyImmediately(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.SearchResults().Subscribe()
	defer sub.Cancel()

	fx.lib.SetSearchQuery("")
	items := <-sub.C
	assert.Empty(t, items)
}

func TestActiveSearchTracksStoreChanges(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.SearchResults().Subscribe()
	defer sub.Cancel()

	fx.lib.SetSearchQuery("beach")
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 1 })

	require.NoError(t, fx.media.UpsertAll(context.Background(), []models.MediaRecord{
		{ID: 9, URI: "u9", DisplayName: "beach-sunset.jpg", DateAdded: 9000},
	}))
	awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 2 })
}

func TestPlainTextSearchWidensToLabelMatches(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()
	ctx := context.Background()

	// "dog" matches no filename; the label row carries the hit.
	require.NoError(t, fx.labels.Upsert(ctx, &models.LabelRecord{MediaID: 3, Labels: "dog,mountain"}))

	sub := fx.lib.SearchResults().Subscribe()
	defer sub.Cancel()
	fx.lib.SetSearchQuery("dog")

	items := awaitItems(t, sub.C, func(items []models.MediaItem) bool { return len(items) == 1 })
	assert.Equal(t, int64(3), items[0].ID)
}

func TestGroupedViewFollowsGroupMode(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.Grouped().Subscribe()
	defer sub.Cancel()

	deadline := time.After(2 * time.Second)
	var groups []models.DateGroup
	for groups == nil {
		select {
		case g := <-sub.C:
			if len(g) > 0 {
				groups = g
			}
		case <-deadline:
			t.Fatal("grouped view never emitted")
		}
	}

	// All three seeded items share the epoch day, one day group.
	assert.Len(t, groups, 1)

	fx.lib.SetGroupMode(models.GroupByMonth)
	select {
	case g := <-sub.C:
		assert.Len(t, g, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("month grouping never emitted")
	}
}

func TestAlbumsViewDerivedFromAllMedia(t *testing.T) {
	fx := newLibraryFixture(t)
	seedLibrary(t, fx)
	fx.lib.MarkReady()

	sub := fx.lib.Albums().Subscribe()
	defer sub.Cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case albums := <-sub.C:
			if len(albums) == 2 {
				assert.Equal(t, "Camera", albums[0].Name)
				assert.Equal(t, 2, albums[0].ItemCount)
				return
			}
		case <-deadline:
			t.Fatal("albums view never emitted")
		}
	}
}
