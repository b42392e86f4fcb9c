package models

import (
	"strings"
	"time"
)

// MediaRecord is the cached mirror of a media index entry. The cache is
// derivative: a record never exists locally without a matching index id.
type MediaRecord struct {
	ID          int64   `json:"id"`
	URI         string  `json:"uri"`
	DisplayName string  `json:"displayName"`
	DateAdded   int64   `json:"dateAdded"` // epoch seconds
	BucketID    *string `json:"bucketId,omitempty"`
	BucketName  *string `json:"bucketName,omitempty"`
	MimeType    string  `json:"mimeType"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Size        int64   `json:"size"`
	Duration    *int64  `json:"duration,omitempty"` // video only, ms
	IsVideo     bool    `json:"isVideo"`
	Path        string  `json:"path"`
}

// TakenAt returns the record's date-added as a local time.
func (r *MediaRecord) TakenAt() time.Time {
	return time.Unix(r.DateAdded, 0)
}

// IsGIF reports whether the record is an animated GIF.
func (r *MediaRecord) IsGIF() bool {
	return strings.EqualFold(r.MimeType, "image/gif") ||
		strings.HasSuffix(strings.ToLower(r.DisplayName), ".gif")
}

// MediaItem is the UI-facing projection of a MediaRecord: the cached fields
// plus a favorite flag resolved by left-joining the favorites table, plus
// transient GPS coordinates resolved on demand and never cached.
type MediaItem struct {
	MediaRecord
	IsFavorite bool     `json:"isFavorite"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// LabelRecord holds ML-derived tags for one media id. Labels is a
// comma-joined lowercase tag list; LabelsWithConfidence carries
// "tag:confidence" pairs in the same order.
type LabelRecord struct {
	MediaID              int64  `json:"mediaId"`
	Labels               string `json:"labels"`
	LabelsWithConfidence string `json:"labelsWithConfidence"`
	ProcessedTimestamp   int64  `json:"processedTimestamp"`
}

// LabelList splits the comma-joined labels into a slice, dropping empties.
func (l *LabelRecord) LabelList() []string {
	if l.Labels == "" {
		return nil
	}
	parts := strings.Split(l.Labels, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TrashedItem is a media index entry sitting in the trash, pending expiry.
type TrashedItem struct {
	ID          int64     `json:"id"`
	URI         string    `json:"uri"`
	DisplayName string    `json:"displayName"`
	Size        int64     `json:"size"`
	IsVideo     bool      `json:"isVideo"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Errors
type MediaError struct {
	Message string
}

func (e MediaError) Error() string {
	return e.Message
}

var (
	ErrMediaNotFound    = MediaError{"media record not found"}
	ErrInvalidMediaID   = MediaError{"media id must be positive"}
	ErrEmptyURI         = MediaError{"media uri cannot be empty"}
	ErrIndexUnavailable = MediaError{"media index is unavailable"}
)
