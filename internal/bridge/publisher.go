package bridge

import (
	"context"

	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/overlay"
	"github.com/photonav/gallery/internal/query"
	"github.com/photonav/gallery/internal/reactive"
	"github.com/photonav/gallery/internal/selection"
	"github.com/photonav/gallery/internal/services"
	"github.com/photonav/gallery/internal/settings"
)

// Publisher mirrors every reactive emission class onto a hub topic so the
// renderer can subscribe to exactly what it draws.
type Publisher struct {
	hub    *Hub
	cancel []func()
}

// NewPublisher creates an idle publisher.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// libraryPayload groups the flat item views into one frame.
type libraryPayload struct {
	All    []models.MediaItem `json:"all"`
	Images []models.MediaItem `json:"images"`
	Videos []models.MediaItem `json:"videos"`
}

// Start wires every feed to its topic and pumps until the context ends.
// Any source may be nil and is simply skipped.
func (p *Publisher) Start(ctx context.Context, lib *query.Library, sync *services.SyncEngine,
	sel *selection.Controller, ov *overlay.StateOwner, prefs *settings.Store) {

	if lib != nil {
		pump(ctx, p, lib.AllMedia(), func(items []models.MediaItem) {
			images, _ := lib.Images().Get()
			videos, _ := lib.Videos().Get()
			p.hub.Publish(TopicLibrary, libraryPayload{All: items, Images: images, Videos: videos})
		})
		pump(ctx, p, lib.Grouped(), func(groups []models.DateGroup) {
			p.hub.Publish(TopicGrouped, groups)
		})
		pump(ctx, p, lib.Categorized(), func(cats models.CategorizedAlbums) {
			p.hub.Publish(TopicAlbums, cats)
		})
		pump(ctx, p, lib.Favorites(), func(items []models.MediaItem) {
			p.hub.Publish(TopicFavorites, items)
		})
		pump(ctx, p, lib.SearchResults(), func(items []models.MediaItem) {
			p.hub.Publish(TopicSearch, items)
		})
	}
	if sync != nil {
		pump(ctx, p, sync.Status(), func(st services.SyncStatus) {
			p.hub.Publish(TopicSyncStatus, st)
		})
	}
	if sel != nil {
		pump(ctx, p, sel.Feed(), func(snap selection.Snapshot) {
			p.hub.Publish(TopicSelection, snap)
		})
	}
	if ov != nil {
		pump(ctx, p, ov.Feed(), func(st overlay.State) {
			p.hub.Publish(TopicOverlay, st)
		})
	}
	if prefs != nil {
		pump(ctx, p, prefs.Feed(), func(m map[string]string) {
			p.hub.Publish(TopicSettings, m)
		})
	}
}

// Stop cancels every subscription.
func (p *Publisher) Stop() {
	for _, fn := range p.cancel {
		fn()
	}
	p.cancel = nil
}

func pump[T any](ctx context.Context, p *Publisher, feed *reactive.Feed[T], emit func(T)) {
	sub := feed.Subscribe()
	p.cancel = append(p.cancel, sub.Cancel)
	go func() {
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-sub.C:
				if !ok {
					return
				}
				emit(v)
			}
		}
	}()
}
