// Package settings exposes persisted preferences as continuously-updating
// key streams backed by the settings table. Sort mode deliberately does
// not live here; it is in-memory per session.
package settings

import (
	"context"
	"strconv"

	"github.com/photonav/gallery/internal/observability"
	"github.com/photonav/gallery/internal/reactive"
	"github.com/photonav/gallery/internal/repository"
)

// Preference keys.
const (
	KeyGridGrouping    = "grid_grouping"     // "day" | "month"
	KeySelectedAlbum   = "selected_album"    // bucket id, "" = all
	KeySwipeToClose    = "swipe_to_close"    // bool
	KeySwipeToReveal   = "swipe_to_reveal"   // bool
	KeyDoubleTapZoom   = "double_tap_zoom"   // "2" | "3" | "4", "" disables
	KeyAutoplayVideos  = "autoplay_videos"   // bool
	KeyLoopVideos      = "loop_videos"       // bool
	KeyMuteVideos      = "mute_videos"       // bool
	KeyDefaultTab      = "default_tab"       // "photos" | "videos" | "albums"
	KeyRememberLastTab = "remember_last_tab" // bool
)

// Store serves typed reads and writes over the settings repository and
// republishes the full preference map whenever any key changes.
type Store struct {
	repo    repository.SettingsRepo
	changes *repository.Changes
	log     *observability.Logger

	feed *reactive.Feed[map[string]string]
	stop chan struct{}
}

// NewStore creates a store over the repository.
func NewStore(repo repository.SettingsRepo, changes *repository.Changes) *Store {
	return &Store{
		repo:    repo,
		changes: changes,
		log:     observability.GetLogger().WithField("component", "settings"),
		feed:    reactive.NewFeed[map[string]string](),
		stop:    make(chan struct{}),
	}
}

// Start loads the current map and keeps the feed current as writes land.
func (s *Store) Start(ctx context.Context) {
	s.reload(ctx)

	ch := s.changes.Subscribe(repository.TopicSettings)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ch:
				s.reload(ctx)
			}
		}
	}()
}

// Stop ends the watch goroutine.
func (s *Store) Stop() {
	close(s.stop)
}

// Feed exposes the full preference map stream.
func (s *Store) Feed() *reactive.Feed[map[string]string] { return s.feed }

func (s *Store) reload(ctx context.Context) {
	all, err := s.repo.All(ctx)
	if err != nil {
		s.log.Errorf("failed to load settings: %v", err)
		return
	}
	s.feed.Publish(all)
}

// GetString returns the raw value, or def when unset.
func (s *Store) GetString(ctx context.Context, key, def string) string {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Errorf("failed to read %s: %v", key, err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

// GetBool parses the value as a boolean, or def when unset or malformed.
func (s *Store) GetBool(ctx context.Context, key string, def bool) bool {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			s.log.Errorf("failed to read %s: %v", key, err)
		}
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// SetString writes the value; the change bus fans it out to watchers.
func (s *Store) SetString(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, key, value)
}

// SetBool writes a boolean value.
func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	return s.repo.Set(ctx, key, strconv.FormatBool(value))
}
