package query

import (
	"sort"

	"github.com/photonav/gallery/internal/models"
)

const albumPreviewCount = 6

// BuildAlbums derives the album list by grouping the all-media stream by
// bucket id. Items with no bucket are skipped. Albums come back sorted by
// item count descending, count ties broken by name.
func BuildAlbums(items []models.MediaItem) []models.Album {
	byBucket := make(map[string]*models.Album)
	order := []string{}

	for _, item := range items {
		if item.BucketID == nil || *item.BucketID == "" {
			continue
		}
		id := *item.BucketID
		album, ok := byBucket[id]
		if !ok {
			name := ""
			if item.BucketName != nil {
				name = *item.BucketName
			}
			album = &models.Album{
				ID:       id,
				Name:     name,
				CoverURI: item.URI, // first item in stream order
			}
			byBucket[id] = album
			order = append(order, id)
		}
		album.ItemCount++
		if len(album.TopMediaItems) < albumPreviewCount {
			album.TopMediaItems = append(album.TopMediaItems, item)
		}
	}

	albums := make([]models.Album, 0, len(order))
	for _, id := range order {
		albums = append(albums, *byBucket[id])
	}

	sort.SliceStable(albums, func(i, j int) bool {
		if albums[i].ItemCount != albums[j].ItemCount {
			return albums[i].ItemCount > albums[j].ItemCount
		}
		return albums[i].Name < albums[j].Name
	})
	return albums
}

// Categorize splits albums into the four largest ("main") and the rest.
func Categorize(albums []models.Album) models.CategorizedAlbums {
	out := models.CategorizedAlbums{Main: []models.Album{}, Other: []models.Album{}}
	for i, a := range albums {
		if i < 4 {
			out.Main = append(out.Main, a)
		} else {
			out.Other = append(out.Other, a)
		}
	}
	return out
}
