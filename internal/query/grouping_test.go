package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photonav/gallery/internal/models"
)

func itemDated(id int64, taken time.Time) models.MediaItem {
	var it models.MediaItem
	it.ID = id
	it.DateAdded = taken.Unix()
	return it
}

func TestDayGroupingLabels(t *testing.T) {
	now := time.Date(2026, time.September, 1, 15, 0, 0, 0, time.UTC)

	items := []models.MediaItem{
		itemDated(1, now.Add(-2*time.Hour)),                               // today
		itemDated(2, now.AddDate(0, 0, -1)),                               // yesterday
		itemDated(3, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)),        // same year
		itemDated(4, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)),         // two years back
	}

	groups := GroupItems(items, models.GroupByDay, now, nil)
	require.Len(t, groups, 4)

	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	assert.Equal(t, []string{"Today", "Yesterday", "15 Mar", "3 Jan 2024"}, labels)

	// Newest group first by raw date key.
	for i := 1; i < len(groups); i++ {
		assert.Greater(t, groups[i-1].DateKey, groups[i].DateKey)
	}
}

func TestMonthGroupingLabels(t *testing.T) {
	now := time.Date(2026, time.September, 1, 15, 0, 0, 0, time.UTC)

	items := []models.MediaItem{
		itemDated(1, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)),
		itemDated(2, time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)),
		itemDated(3, time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)),
	}

	groups := GroupItems(items, models.GroupByMonth, now, nil)
	require.Len(t, groups, 2)
	assert.Equal(t, "September", groups[0].Label)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, "December 2025", groups[1].Label)
}

func TestGroupLocationMostFrequentWins(t *testing.T) {
	now := time.Date(2026, time.September, 1, 15, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	items := []models.MediaItem{
		itemDated(1, day), itemDated(2, day), itemDated(3, day), itemDated(4, day),
	}
	locations := map[int64]string{1: "Lisbon", 2: "Porto", 3: "Porto", 4: ""}

	groups := GroupItems(items, models.GroupByDay, now, func(it models.MediaItem) string {
		return locations[it.ID]
	})
	require.Len(t, groups, 1)
	assert.Equal(t, "Porto", groups[0].Location)
}

func TestGroupLocationTieBreaksByFirstEncountered(t *testing.T) {
	now := time.Date(2026, time.September, 1, 15, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	items := []models.MediaItem{itemDated(1, day), itemDated(2, day)}
	locations := map[int64]string{1: "Lisbon", 2: "Porto"}

	groups := GroupItems(items, models.GroupByDay, now, func(it models.MediaItem) string {
		return locations[it.ID]
	})
	assert.Equal(t, "Lisbon", groups[0].Location)
}

func strp(s string) *string { return &s }

func bucketItem(id int64, bucketID, bucketName string, uri string) models.MediaItem {
	var it models.MediaItem
	it.ID = id
	it.BucketID = strp(bucketID)
	it.BucketName = strp(bucketName)
	it.URI = uri
	return it
}

func TestBuildAlbumsGroupsAndSorts(t *testing.T) {
	items := []models.MediaItem{
		bucketItem(1, "b1", "Camera", "uri-1"),
		bucketItem(2, "b2", "Screenshots", "uri-2"),
		bucketItem(3, "b1", "Camera", "uri-3"),
		bucketItem(4, "b1", "Camera", "uri-4"),
		{}, // no bucket, skipped
	}

	albums := BuildAlbums(items)
	require.Len(t, albums, 2)
	assert.Equal(t, "Camera", albums[0].Name)
	assert.Equal(t, 3, albums[0].ItemCount)
	assert.Equal(t, "uri-1", albums[0].CoverURI, "cover is the first item in stream order")
	assert.Equal(t, "Screenshots", albums[1].Name)
}

func TestBuildAlbumsPreviewCap(t *testing.T) {
	items := make([]models.MediaItem, 10)
	for i := range items {
		items[i] = bucketItem(int64(i+1), "b1", "Camera", "uri")
	}
	albums := BuildAlbums(items)
	require.Len(t, albums, 1)
	assert.Len(t, albums[0].TopMediaItems, 6)
	assert.Equal(t, 10, albums[0].ItemCount)
}

func TestCategorizeSplitsMainFromOther(t *testing.T) {
	albums := make([]models.Album, 6)
	for i := range albums {
		albums[i].ID = string(rune('a' + i))
	}
	cats := Categorize(albums)
	assert.Len(t, cats.Main, 4)
	assert.Len(t, cats.Other, 2)

	cats = Categorize(albums[:2])
	assert.Len(t, cats.Main, 2)
	assert.Empty(t, cats.Other)
}
