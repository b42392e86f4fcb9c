package mediaindex

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/observability"
)

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".bmp":  "image/bmp",
}

var videoExts = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".3gp":  "video/3gpp",
}

// FSIndex is a filesystem-backed Index: media roots are scanned on every
// query, so the catalog is always the current state of the directories.
// Trash is a dedicated directory with JSON sidecars carrying the original
// path and trash time.
type FSIndex struct {
	roots    []string
	trashDir string
	log      *observability.Logger

	mu      sync.RWMutex
	paths   map[int64]string // id -> live path, rebuilt on scan
	buckets map[string]string
}

// NewFSIndex creates an index over the given media roots
func NewFSIndex(roots []string, trashDir string) (*FSIndex, error) {
	if len(roots) == 0 {
		return nil, models.ErrIndexUnavailable
	}
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return nil, fmt.Errorf("create trash dir: %w", err)
	}
	return &FSIndex{
		roots:    roots,
		trashDir: trashDir,
		log:      observability.GetLogger().WithField("component", "fsindex"),
		paths:    make(map[int64]string),
		buckets:  make(map[string]string),
	}, nil
}

// stableID derives a stable positive identity from a path
func stableID(path string) int64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	id := int64(h.Sum64() & 0x7fffffffffffffff)
	if id == 0 {
		id = 1
	}
	return id
}

// QueryImages returns every image under the roots, newest first
func (x *FSIndex) QueryImages(ctx context.Context) ([]Entry, error) {
	return x.scan(ctx, false)
}

// QueryVideos returns every video under the roots, newest first
func (x *FSIndex) QueryVideos(ctx context.Context) ([]Entry, error) {
	return x.scan(ctx, true)
}

func (x *FSIndex) scan(ctx context.Context, videos bool) ([]Entry, error) {
	var mu sync.Mutex
	var entries []Entry
	seen := make(map[int64]string)
	bucketDirs := make(map[string]string)

	conf := &fastwalk.Config{Follow: false}
	for _, root := range x.roots {
		err := fastwalk.Walk(conf, root, func(fullPath string, d iofs.DirEntry, walkErr error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if walkErr != nil {
				return nil // unreadable entries are skipped, not fatal
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && fullPath != root {
					return fastwalk.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(d.Name(), ".pending") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(d.Name()))
			var mime string
			var ok bool
			if videos {
				mime, ok = videoExts[ext]
			} else {
				mime, ok = imageExts[ext]
			}
			if !ok {
				return nil
			}

			info, err := fastwalk.StatDirEntry(fullPath, d)
			if err != nil {
				return nil
			}

			dir := filepath.Dir(fullPath)
			bucketID := fmt.Sprintf("%d", stableID(dir))
			bucketName := filepath.Base(dir)

			e := Entry{
				ID:          stableID(fullPath),
				URI:         "file://" + fullPath,
				DisplayName: d.Name(),
				DateAdded:   info.ModTime().Unix(),
				BucketID:    &bucketID,
				BucketName:  &bucketName,
				MimeType:    mime,
				Size:        info.Size(),
				IsVideo:     videos,
				Path:        fullPath,
			}
			if !videos {
				e.Width, e.Height = imageDimensions(fullPath)
			}

			mu.Lock()
			entries = append(entries, e)
			seen[e.ID] = fullPath
			bucketDirs[bucketID] = dir
			mu.Unlock()
			return nil
		})
		if err != nil && err != ctx.Err() {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DateAdded != entries[j].DateAdded {
			return entries[i].DateAdded > entries[j].DateAdded
		}
		return entries[i].ID > entries[j].ID
	})

	x.mu.Lock()
	for id, p := range seen {
		x.paths[id] = p
	}
	for b, d := range bucketDirs {
		x.buckets[b] = d
	}
	x.mu.Unlock()

	return entries, nil
}

// imageDimensions reads just the header; failures yield 0x0 (HEIC and
// friends the stdlib cannot parse).
func imageDimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

type trashMeta struct {
	OriginalPath string    `json:"originalPath"`
	TrashedAt    time.Time `json:"trashedAt"`
	IsVideo      bool      `json:"isVideo"`
}

// QueryTrashed lists trashed items that have not yet expired
func (x *FSIndex) QueryTrashed(ctx context.Context) ([]models.TrashedItem, error) {
	dirEntries, err := os.ReadDir(x.trashDir)
	if err != nil {
		return nil, fmt.Errorf("read trash: %w", err)
	}

	items := []models.TrashedItem{}
	for _, d := range dirEntries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".meta.json") || strings.HasPrefix(d.Name(), ".pending") {
			continue
		}

		full := filepath.Join(x.trashDir, d.Name())
		meta, err := x.readMeta(full)
		if err != nil {
			continue
		}
		expires := meta.TrashedAt.Add(ExpiryWindow)
		if time.Now().After(expires) {
			continue
		}

		info, err := d.Info()
		if err != nil {
			continue
		}
		items = append(items, models.TrashedItem{
			ID:          stableID(full),
			URI:         "file://" + full,
			DisplayName: filepath.Base(meta.OriginalPath),
			Size:        info.Size(),
			IsVideo:     meta.IsVideo,
			ExpiresAt:   expires,
		})
	}
	return items, nil
}

func (x *FSIndex) metaPath(trashedFile string) string {
	return trashedFile + ".meta.json"
}

func (x *FSIndex) readMeta(trashedFile string) (*trashMeta, error) {
	data, err := os.ReadFile(x.metaPath(trashedFile))
	if err != nil {
		return nil, err
	}
	var m trashMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RequestTrash returns a confirmation that, when accepted, moves the items
// into the trash directory.
func (x *FSIndex) RequestTrash(ctx context.Context, ids []int64) (*Confirmation, error) {
	return NewConfirmation(ActionTrash, ids, func(ctx context.Context) error {
		var firstErr error
		for _, id := range ids {
			x.mu.RLock()
			src, ok := x.paths[id]
			x.mu.RUnlock()
			if !ok {
				continue
			}

			_, isVideo := videoExts[strings.ToLower(filepath.Ext(src))]
			dst := filepath.Join(x.trashDir, fmt.Sprintf("%d-%s", id, filepath.Base(src)))
			if err := os.Rename(src, dst); err != nil {
				x.log.Warnf("trash move failed %s: %v", src, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			meta := trashMeta{OriginalPath: src, TrashedAt: time.Now(), IsVideo: isVideo}
			data, _ := json.Marshal(meta)
			if err := os.WriteFile(x.metaPath(dst), data, 0644); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}), nil
}

// RequestRestore returns a confirmation that moves trashed items back to
// their original paths.
func (x *FSIndex) RequestRestore(ctx context.Context, ids []int64) (*Confirmation, error) {
	return NewConfirmation(ActionRestore, ids, func(ctx context.Context) error {
		var firstErr error
		for _, id := range ids {
			trashed, err := x.trashedPath(id)
			if err != nil {
				continue
			}
			meta, err := x.readMeta(trashed)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if err := os.MkdirAll(filepath.Dir(meta.OriginalPath), 0755); err == nil {
				err = os.Rename(trashed, meta.OriginalPath)
			}
			if err != nil {
				x.log.Warnf("restore failed %s: %v", trashed, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			os.Remove(x.metaPath(trashed))
		}
		return firstErr
	}), nil
}

// RequestDelete returns a confirmation that permanently removes items,
// whether live or already trashed.
func (x *FSIndex) RequestDelete(ctx context.Context, ids []int64) (*Confirmation, error) {
	return NewConfirmation(ActionPermanentDelete, ids, func(ctx context.Context) error {
		var firstErr error
		for _, id := range ids {
			if trashed, err := x.trashedPath(id); err == nil {
				os.Remove(x.metaPath(trashed))
				if err := os.Remove(trashed); err != nil && firstErr == nil {
					firstErr = err
				}
				continue
			}

			x.mu.RLock()
			src, ok := x.paths[id]
			x.mu.RUnlock()
			if !ok {
				continue
			}
			if err := os.Remove(src); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}), nil
}

func (x *FSIndex) trashedPath(id int64) (string, error) {
	entries, err := os.ReadDir(x.trashDir)
	if err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("%d-", id)
	for _, d := range entries {
		if strings.HasSuffix(d.Name(), ".meta.json") {
			continue
		}
		full := filepath.Join(x.trashDir, d.Name())
		if strings.HasPrefix(d.Name(), prefix) || stableID(full) == id {
			return full, nil
		}
	}
	return "", os.ErrNotExist
}

// Copy copies items into the destination bucket's directory
func (x *FSIndex) Copy(ctx context.Context, items []models.MediaItem, destBucketID string) (*CopyResult, error) {
	return x.transfer(ctx, items, destBucketID, false)
}

// Move is a copy that removes the source on success
func (x *FSIndex) Move(ctx context.Context, items []models.MediaItem, destBucketID string) (*CopyResult, error) {
	return x.transfer(ctx, items, destBucketID, true)
}

func (x *FSIndex) transfer(ctx context.Context, items []models.MediaItem, destBucketID string, move bool) (*CopyResult, error) {
	destDir, err := x.bucketDir(destBucketID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	res := &CopyResult{}
	for _, item := range items {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := x.transferOne(item.Path, destDir, move); err != nil {
			x.log.Warnf("transfer failed %s: %v", item.Path, err)
			res.Failed++
			continue
		}
		res.Completed++
	}

	res.Success = res.Failed == 0
	verb := "copied"
	if move {
		verb = "moved"
	}
	if res.Success {
		res.Summary = fmt.Sprintf("%d items %s", res.Completed, verb)
	} else {
		res.Summary = fmt.Sprintf("%d items %s, %d failed", res.Completed, verb, res.Failed)
	}
	return res, nil
}

// bucketDir resolves the target-relative path for a destination bucket:
// the directory its existing entries live in, falling back to a
// name-derived path under the first root when the bucket is empty or
// unknown.
func (x *FSIndex) bucketDir(bucketID string) (string, error) {
	x.mu.RLock()
	dir, ok := x.buckets[bucketID]
	x.mu.RUnlock()
	if ok {
		return dir, nil
	}
	if bucketID == "" {
		return "", fmt.Errorf("no destination bucket")
	}
	return filepath.Join(x.roots[0], bucketID), nil
}

// transferOne writes the destination under a pending name and renames it
// into place on completion, so a half-written file never looks like media.
func (x *FSIndex) transferOne(src, destDir string, move bool) error {
	name := filepath.Base(src)
	final := filepath.Join(destDir, name)
	if _, err := os.Stat(final); err == nil {
		final = filepath.Join(destDir, uniqueName(destDir, name))
	}

	if move {
		if err := os.Rename(src, final); err == nil {
			return nil
		}
		// cross-device: fall through to copy+remove
	}

	pending := filepath.Join(destDir, ".pending-"+filepath.Base(final))
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(pending)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(pending)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(pending)
		return err
	}
	if err := os.Rename(pending, final); err != nil {
		os.Remove(pending)
		return err
	}

	if move {
		return os.Remove(src)
	}
	return nil
}

func uniqueName(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}
