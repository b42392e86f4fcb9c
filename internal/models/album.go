package models

// Album is a derived grouping of media by bucket id. Albums are never
// persisted; they are recomputed from the current media stream.
type Album struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	CoverURI      string      `json:"coverUri"`
	ItemCount     int         `json:"itemCount"`
	TopMediaItems []MediaItem `json:"topMediaItems"` // first 6, grid preview
}

// AlbumAll is the reserved album filter sentinel meaning "no filter".
const AlbumAll = "all"

// CategorizedAlbums splits the album list into the four largest ("main")
// and the remainder ("other"), both sorted by item count descending.
type CategorizedAlbums struct {
	Main  []Album `json:"main"`
	Other []Album `json:"other"`
}
