// Package selection tracks the set of records chosen for bulk actions.
// Selection is orthogonal to the query layer: views keep updating while a
// selection is active, and mutations run through the media index's
// confirmation flow rather than touching the cache directly.
package selection

import (
	"context"
	"sync"

	"github.com/photonav/gallery/internal/mediaindex"
	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/observability"
	"github.com/photonav/gallery/internal/reactive"
)

// Mode is the controller's state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSelecting
)

// Snapshot is the externally visible selection state, published on every
// transition.
type Snapshot struct {
	Mode  Mode
	IDs   []int64
	Count int
}

// ShareFunc hands the selected items to the platform share surface.
type ShareFunc func(ctx context.Context, items []models.MediaItem) error

// Controller owns the selection set and the bulk operations over it.
// Deletion never mutates state optimistically: the confirmation outcome
// alone drives the exit from selection mode and the follow-up resync.
type Controller struct {
	index  mediaindex.Index
	share  ShareFunc
	resync func()
	log    *observability.Logger

	mu       sync.Mutex
	mode     Mode
	selected map[int64]models.MediaItem

	feed *reactive.Feed[Snapshot]
}

// NewController creates an idle controller. resync is invoked after any
// successful mutation so the cache catches up; it may be nil.
func NewController(index mediaindex.Index, share ShareFunc, resync func()) *Controller {
	c := &Controller{
		index:    index,
		share:    share,
		resync:   resync,
		log:      observability.GetLogger().WithField("component", "selection"),
		selected: make(map[int64]models.MediaItem),
		feed:     reactive.NewFeed[Snapshot](),
	}
	c.feed.Publish(c.snapshotLocked())
	return c
}

// Feed exposes the selection state stream.
func (c *Controller) Feed() *reactive.Feed[Snapshot] { return c.feed }

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// IsSelected reports membership.
func (c *Controller) IsSelected(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selected[id]
	return ok
}

// Enter starts selection mode anchored on one item. A no-op when already
// selecting; use Toggle to grow an active selection.
func (c *Controller) Enter(anchor models.MediaItem) {
	c.mu.Lock()
	if c.mode == ModeSelecting {
		c.mu.Unlock()
		return
	}
	c.mode = ModeSelecting
	c.selected[anchor.ID] = anchor
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.feed.Publish(snap)
}

// Toggle adds or removes an item. Removing the last item exits selection
// mode automatically.
func (c *Controller) Toggle(item models.MediaItem) {
	c.mu.Lock()
	if c.mode != ModeSelecting {
		c.mode = ModeSelecting
	}
	if _, ok := c.selected[item.ID]; ok {
		delete(c.selected, item.ID)
	} else {
		c.selected[item.ID] = item
	}
	if len(c.selected) == 0 {
		c.mode = ModeIdle
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.feed.Publish(snap)
}

// Clear empties the set and returns to idle.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.selected = make(map[int64]models.MediaItem)
	c.mode = ModeIdle
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.feed.Publish(snap)
}

// Items returns the selected items in unspecified order.
func (c *Controller) Items() []models.MediaItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.MediaItem, 0, len(c.selected))
	for _, it := range c.selected {
		items = append(items, it)
	}
	return items
}

// RequestDelete asks the index to trash the current selection and returns
// the confirmation handle for the caller to present. The selection stays
// intact until the handle is accepted; cancel leaves everything as it was.
func (c *Controller) RequestDelete(ctx context.Context) (*mediaindex.Confirmation, error) {
	ids := c.selectedIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	conf, err := c.index.RequestTrash(ctx, ids)
	if err != nil {
		return nil, err
	}
	go c.watchConfirmation(ctx, conf)
	return conf, nil
}

// watchConfirmation applies the post-accept transition: clear the set,
// exit selection mode, resync. A cancel is a normal outcome and leaves the
// selection active.
func (c *Controller) watchConfirmation(ctx context.Context, conf *mediaindex.Confirmation) {
	accepted, err := conf.Wait(ctx)
	if err != nil {
		c.log.Warnf("confirmation %s failed: %v", conf.ID, err)
		return
	}
	if !accepted {
		return
	}
	c.Clear()
	if c.resync != nil {
		c.resync()
	}
}

// Copy copies the selection into the destination album. Completed items
// survive a partial failure; the result summary carries the details.
func (c *Controller) Copy(ctx context.Context, destBucketID string) (*mediaindex.CopyResult, error) {
	return c.transfer(ctx, destBucketID, c.index.Copy)
}

// Move moves the selection into the destination album.
func (c *Controller) Move(ctx context.Context, destBucketID string) (*mediaindex.CopyResult, error) {
	return c.transfer(ctx, destBucketID, c.index.Move)
}

func (c *Controller) transfer(ctx context.Context, destBucketID string,
	op func(context.Context, []models.MediaItem, string) (*mediaindex.CopyResult, error)) (*mediaindex.CopyResult, error) {

	items := c.Items()
	if len(items) == 0 {
		return &mediaindex.CopyResult{Success: true}, nil
	}
	res, err := op(ctx, items, destBucketID)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		c.log.Warnf("bulk transfer partial failure: %s", res.Summary)
	}
	c.Clear()
	if c.resync != nil {
		c.resync()
	}
	return res, nil
}

// Share hands the selection to the share collaborator and exits selection
// mode on success.
func (c *Controller) Share(ctx context.Context) error {
	if c.share == nil {
		return nil
	}
	items := c.Items()
	if len(items) == 0 {
		return nil
	}
	if err := c.share(ctx, items); err != nil {
		return err
	}
	c.Clear()
	return nil
}

func (c *Controller) selectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	return ids
}

func (c *Controller) snapshotLocked() Snapshot {
	ids := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	return Snapshot{Mode: c.mode, IDs: ids, Count: len(ids)}
}
