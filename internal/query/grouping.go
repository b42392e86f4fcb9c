package query

import (
	"sort"
	"time"

	"github.com/photonav/gallery/internal/models"
)

// LocationFunc resolves a best-effort location string for an item; empty
// means unknown.
type LocationFunc func(models.MediaItem) string

// GroupItems buckets the given (already sorted) media stream into day or
// month groups. Each group carries a display label relative to now and the
// most frequent non-empty location among its items, ties broken by first
// encountered. Groups come back newest-first by raw date key.
func GroupItems(items []models.MediaItem, mode models.GroupMode, now time.Time, locationFor LocationFunc) []models.DateGroup {
	buckets := make(map[int64]*models.DateGroup)
	order := []int64{}

	for _, item := range items {
		key := groupKey(item.TakenAt(), mode, now.Location())
		g, ok := buckets[key]
		if !ok {
			g = &models.DateGroup{
				DateKey: key,
				Label:   groupLabel(key, mode, now),
			}
			buckets[key] = g
			order = append(order, key)
		}
		g.Items = append(g.Items, item)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] > order[j] })

	groups := make([]models.DateGroup, 0, len(order))
	for _, key := range order {
		g := buckets[key]
		if locationFor != nil {
			g.Location = frequentLocation(g.Items, locationFor)
		}
		groups = append(groups, *g)
	}
	return groups
}

func groupKey(t time.Time, mode models.GroupMode, loc *time.Location) int64 {
	t = t.In(loc)
	y, m, d := t.Date()
	if mode == models.GroupByMonth {
		return time.Date(y, m, 1, 0, 0, 0, 0, loc).Unix()
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Unix()
}

// groupLabel renders the human label for a bucket: "Today"/"Yesterday"/
// "15 Mar"/"3 Jan 2024" for days, "January"/"December 2025" for months.
// The year suffix appears only when the bucket's year differs from now's.
func groupLabel(key int64, mode models.GroupMode, now time.Time) string {
	t := time.Unix(key, 0).In(now.Location())

	if mode == models.GroupByMonth {
		if t.Year() == now.Year() {
			return t.Format("January")
		}
		return t.Format("January 2006")
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch {
	case t.Equal(today):
		return "Today"
	case t.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case t.Year() == now.Year():
		return t.Format("2 Jan")
	default:
		return t.Format("2 Jan 2006")
	}
}

// frequentLocation returns the most common non-empty location, ties broken
// by first-encountered in iteration order.
func frequentLocation(items []models.MediaItem, locationFor LocationFunc) string {
	counts := make(map[string]int)
	first := []string{}
	for _, item := range items {
		loc := locationFor(item)
		if loc == "" {
			continue
		}
		if counts[loc] == 0 {
			first = append(first, loc)
		}
		counts[loc]++
	}

	best := ""
	bestCount := 0
	for _, loc := range first {
		if counts[loc] > bestCount {
			best = loc
			bestCount = counts[loc]
		}
	}
	return best
}
