package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photonav/gallery/internal/repository"
)

// anchor is a fixed Tuesday for deterministic relative-date resolution.
var anchor = time.Date(2026, time.September, 1, 14, 30, 0, 0, time.UTC)

func TestDetectFiltersTypeKeywords(t *testing.T) {
	f := DetectFilters("beach videos", anchor, time.Monday)
	assert.Equal(t, TypeVideo, f.Type)
	assert.Equal(t, "beach", f.Residual)

	f = DetectFilters("photos of dogs", anchor, time.Monday)
	assert.Equal(t, TypePhoto, f.Type)
	assert.Equal(t, "of dogs", f.Residual)
}

func TestDetectFiltersSizeKeywords(t *testing.T) {
	assert.Equal(t, SizeSmall, DetectFilters("small clips", anchor, time.Monday).Size)
	assert.Equal(t, SizeMedium, DetectFilters("medium files", anchor, time.Monday).Size)
	assert.Equal(t, SizeLarge, DetectFilters("big videos", anchor, time.Monday).Size)
}

func TestDetectFiltersDatePhrases(t *testing.T) {
	tests := []struct {
		query     string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"today", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"this week", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), anchor},
		{"last week", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
		{"this month", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), anchor},
		{"last month", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f := DetectFilters(tt.query, anchor, time.Monday)
			require.NotNil(t, f.Date)
			assert.Equal(t, tt.wantStart.UnixMilli(), f.Date.StartMs)
			assert.Equal(t, tt.wantEnd.UnixMilli(), f.Date.EndMs)
			assert.Empty(t, f.Residual)
		})
	}
}

func TestDetectFiltersYearToken(t *testing.T) {
	f := DetectFilters("2023", anchor, time.Monday)
	require.NotNil(t, f.Date)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), f.Date.StartMs)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), f.Date.EndMs)

	// Out-of-window numbers stay plain text.
	f = DetectFilters("1999", anchor, time.Monday)
	assert.Nil(t, f.Date)
	assert.Equal(t, "1999", f.Residual)
}

func TestDetectFiltersBareMonthMeansMostRecent(t *testing.T) {
	// March has already passed in 2026 when anchored to September.
	f := DetectFilters("march", anchor, time.Monday)
	require.NotNil(t, f.Date)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), f.Date.StartMs)

	// December has not happened yet this year, so it means last year's.
	f = DetectFilters("december", anchor, time.Monday)
	require.NotNil(t, f.Date)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), f.Date.StartMs)
}

func TestResolveDecisionTable(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"sunset", "text"},
		{"videos", "type"},
		{"large", "size"},
		{"2024", "date"},
		{"large videos", "type+size"},
		{"videos from 2024", "type+date"},
		{"large files from 2024", "size+date"},
		{"large videos from 2024", "type+size+date"},
		{"screenshot", "screenshot"},
		{"camera", "camera"},
		{"gifs", "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			route := Resolve(DetectFilters(tt.query, anchor, time.Monday))
			assert.Equal(t, tt.want, route.Name)
		})
	}
}

// "large screenshot from last month" routes to the screenshot variant
// while still carrying the size and date bounds.
func TestSpecialRouteKeepsSizeAndDateBounds(t *testing.T) {
	f := DetectFilters("large screenshot from last month", anchor, time.Monday)
	assert.Equal(t, SpecialScreenshot, f.Special)
	assert.Equal(t, SizeLarge, f.Size)
	require.NotNil(t, f.Date)

	route := Resolve(f)
	assert.Equal(t, "screenshot", route.Name)
	assert.Equal(t, repository.KindImages, route.Options.Kind)
	assert.Equal(t, "screenshot", route.Options.PathLike)
	assert.Equal(t, int64(100*1024*1024), route.Options.MinSize)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), route.Options.DateStartMs)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), route.Options.DateEndMs)
}

func TestResolveTextRouteSearchesLabels(t *testing.T) {
	route := Resolve(DetectFilters("sunset beach", anchor, time.Monday))
	assert.Equal(t, "text", route.Name)
	assert.Equal(t, "sunset beach", route.Options.NameLike)
	assert.True(t, route.UseLabels)
}

func TestResolveVideoRouteKind(t *testing.T) {
	route := Resolve(DetectFilters("videos", anchor, time.Monday))
	assert.Equal(t, repository.KindVideos, route.Options.Kind)
	assert.False(t, route.UseLabels)
}
