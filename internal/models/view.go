package models

// SortMode selects the ordering of the all-media view. Switching modes
// re-subscribes to the correspondingly-ordered query; nothing is re-sorted
// in memory.
type SortMode string

const (
	SortDateDesc SortMode = "date_desc"
	SortDateAsc  SortMode = "date_asc"
	SortNameAsc  SortMode = "name_asc"
	SortNameDesc SortMode = "name_desc"
	SortSizeDesc SortMode = "size_desc"
	SortSizeAsc  SortMode = "size_asc"
)

// SortModes lists every supported mode.
var SortModes = []SortMode{
	SortDateDesc, SortDateAsc,
	SortNameAsc, SortNameDesc,
	SortSizeDesc, SortSizeAsc,
}

// Valid reports whether the mode is one of the six supported orderings.
func (m SortMode) Valid() bool {
	switch m {
	case SortDateDesc, SortDateAsc, SortNameAsc, SortNameDesc, SortSizeDesc, SortSizeAsc:
		return true
	}
	return false
}

// GroupMode buckets the grouped-for-display view by day or by month.
type GroupMode string

const (
	GroupByDay   GroupMode = "day"
	GroupByMonth GroupMode = "month"
)

// DateGroup is one display bucket of the grouped view: a human label
// ("Today", "15 Mar", "January", "December 2025"), the most frequent
// non-empty location among its items, and the items themselves. Groups are
// ordered newest-first by DateKey.
type DateGroup struct {
	DateKey  int64       `json:"dateKey"` // epoch seconds of the bucket start
	Label    string      `json:"label"`
	Location string      `json:"location,omitempty"`
	Items    []MediaItem `json:"items"`
}

// MediaType narrows which collection an overlay session browses.
type MediaType string

const (
	MediaTypePhotos MediaType = "photos"
	MediaTypeVideos MediaType = "videos"
	MediaTypeTrash  MediaType = "trash"
)
