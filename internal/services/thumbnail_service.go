package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"

	"github.com/photonav/gallery/internal/models"
)

// Thumbnail sizes. Covers back album tiles; previews feed the
// shared-element transition with a bitmap matching the grid cell.
const (
	CoverMaxDim   = 500
	PreviewMaxDim = 200
	thumbQuality  = 82
)

// ThumbnailService renders and caches JPEG thumbnails for cached media.
// Thumbnails are keyed by media id and size under a cache directory.
type ThumbnailService struct {
	cacheDir string
	exif     *EXIFService
}

// NewThumbnailService creates a service writing into cacheDir.
func NewThumbnailService(cacheDir string, exif *EXIFService) *ThumbnailService {
	return &ThumbnailService{cacheDir: cacheDir, exif: exif}
}

// Cover returns the cache path of an album-cover thumbnail for the item,
// rendering it on first use.
func (s *ThumbnailService) Cover(item *models.MediaItem) (string, error) {
	return s.ensure(item, "cover", CoverMaxDim)
}

// Preview returns the cache path of a grid-cell preview for the item,
// rendering it on first use.
func (s *ThumbnailService) Preview(item *models.MediaItem) (string, error) {
	return s.ensure(item, "preview", PreviewMaxDim)
}

func (s *ThumbnailService) ensure(item *models.MediaItem, kind string, maxDim int) (string, error) {
	if item.IsVideo {
		return "", fmt.Errorf("no thumbnail path for video %d", item.ID)
	}
	if !IsSupportedFormat(item.Path) {
		return "", fmt.Errorf("unsupported format: %s", item.Path)
	}

	path := filepath.Join(s.cacheDir, fmt.Sprintf("%d_%s.jpg", item.ID, kind))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := os.ReadFile(item.Path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	jpg, err := s.Render(data, item.Path, maxDim)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return "", err
	}
	tmp := path + ".pending"
	if err := os.WriteFile(tmp, jpg, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// Render decodes, orients, resizes, and re-encodes image bytes as a JPEG
// thumbnail bounded by maxDim on its longer side.
func (s *ThumbnailService) Render(data []byte, sourcePath string, maxDim int) ([]byte, error) {
	var img image.Image
	var err error

	if IsHEIC(sourcePath) {
		img, err = decodeHEIC(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(sourcePath), err)
	}

	orientation := 1
	if s.exif != nil {
		if meta, err := s.exif.ExtractFromBytes(data); err == nil {
			orientation = meta.Orientation
		}
	}
	img = applyOrientation(img, orientation)

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	nw, nh := fitWithin(w, h, maxDim)
	resized := imaging.Resize(img, nw, nh, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Evict removes the cached thumbnails for a media id, used when the record
// is pruned.
func (s *ThumbnailService) Evict(mediaID int64) {
	for _, kind := range []string{"cover", "preview"} {
		os.Remove(filepath.Join(s.cacheDir, fmt.Sprintf("%d_%s.jpg", mediaID, kind)))
	}
}

// fitWithin scales (w, h) down to fit maxDim on the longer side, keeping
// aspect ratio. Images already within bounds keep their size.
func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		return maxDim, h * maxDim / w
	}
	return w * maxDim / h, maxDim
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// IsSupportedFormat checks if the file extension is supported for thumbnail generation
func IsSupportedFormat(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".heic", ".heif":
		return true
	}
	return false
}

// IsHEIC checks if the file is HEIC/HEIF format (requires special handling)
func IsHEIC(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".heic" || ext == ".heif"
}

// decodeHEIC decodes a HEIC/HEIF image using goheif (pure Go)
func decodeHEIC(data []byte) (image.Image, error) {
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode HEIC: %w", err)
	}
	return img, nil
}
