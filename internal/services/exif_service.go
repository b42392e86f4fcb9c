package services

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/photonav/gallery/internal/models"
)

// EXIFData contains extracted EXIF metadata from an image
type EXIFData struct {
	Orientation int
	DateTaken   *time.Time

	// GPS coordinates
	Latitude  *float64
	Longitude *float64
	Altitude  *float64
}

// EXIFService resolves EXIF metadata on demand. GPS coordinates are
// transient MediaItem fields; they are never written to the cache.
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// ResolveGPS populates the item's transient GPS fields from its file.
// Videos and files without EXIF leave the item untouched.
func (s *EXIFService) ResolveGPS(item *models.MediaItem) error {
	if item.IsVideo || item.Path == "" {
		return nil
	}
	f, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.Path, err)
	}
	defer f.Close()

	data, err := s.ExtractFromReader(f)
	if err != nil {
		return err
	}
	item.Latitude = data.Latitude
	item.Longitude = data.Longitude
	return nil
}

// ExtractFromBytes extracts EXIF data from image bytes
func (s *EXIFService) ExtractFromBytes(data []byte) (*EXIFData, error) {
	return s.ExtractFromReader(bytes.NewReader(data))
}

// ExtractFromReader extracts EXIF data from an io.Reader
func (s *EXIFService) ExtractFromReader(r io.Reader) (*EXIFData, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// No EXIF data or unsupported format - return empty data with defaults
		return &EXIFData{Orientation: 1}, nil
	}

	result := &EXIFData{Orientation: 1}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			result.Orientation = val
		}
	}

	if tm, err := x.DateTime(); err == nil {
		result.DateTaken = &tm
	}

	if lat, lng, err := x.LatLong(); err == nil {
		result.Latitude = &lat
		result.Longitude = &lng
	}

	if tag, err := x.Get(exif.GPSAltitude); err == nil {
		if rat, err := tag.Rat(0); err == nil {
			alt := float64(rat.Num().Int64()) / float64(rat.Denom().Int64())
			// Altitude reference 1 means below sea level.
			if refTag, err := x.Get(exif.GPSAltitudeRef); err == nil {
				if ref, err := refTag.Int(0); err == nil && ref == 1 {
					alt = -alt
				}
			}
			result.Altitude = &alt
		}
	}

	return result, nil
}

// FormatCoordinates formats lat/lng as a readable string
func FormatCoordinates(lat, lng float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = math.Abs(lat)
	}
	lngDir := "E"
	if lng < 0 {
		lngDir = "W"
		lng = math.Abs(lng)
	}
	return fmt.Sprintf("%.6f°%s, %.6f°%s", lat, latDir, lng, lngDir)
}
