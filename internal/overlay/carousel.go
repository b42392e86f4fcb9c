package overlay

import "github.com/photonav/gallery/internal/models"

// SlotPosition is a pager slot's role relative to the visible item.
type SlotPosition int

const (
	SlotPrev SlotPosition = iota
	SlotCenter
	SlotNext
)

// Slot is one of the three stable pager surfaces. Slots keep their
// identity across navigation; only the data bound to them rotates, so the
// render layer never tears down a surface mid-swipe.
type Slot struct {
	Position SlotPosition
	Item     *models.MediaItem // nil at the carousel ends
	Index    int               // -1 when Item is nil
}

// Carousel binds a media list to three recycled slots around a current
// index.
type Carousel struct {
	items []models.MediaItem
	index int
}

// NewCarousel creates a carousel over the given items.
func NewCarousel(items []models.MediaItem, index int) *Carousel {
	c := &Carousel{}
	c.SetItems(items, index)
	return c
}

// SetItems replaces the backing list, clamping the index into range.
func (c *Carousel) SetItems(items []models.MediaItem, index int) {
	c.items = items
	c.index = clampInt(index, 0, maxInt(len(items)-1, 0))
}

// Index returns the current center index.
func (c *Carousel) Index() int { return c.index }

// Len returns the backing list length.
func (c *Carousel) Len() int { return len(c.items) }

// Current returns the center item, or nil when the list is empty.
func (c *Carousel) Current() *models.MediaItem {
	return c.at(c.index)
}

// Advance moves the center by delta, clamped to the list bounds, and
// returns the new index.
func (c *Carousel) Advance(delta int) int {
	c.index = clampInt(c.index+delta, 0, maxInt(len(c.items)-1, 0))
	return c.index
}

// Slots returns the three slots for the current index. Neighbor slots at
// the list ends carry a nil item.
func (c *Carousel) Slots() [3]Slot {
	return [3]Slot{
		c.slot(SlotPrev, c.index-1),
		c.slot(SlotCenter, c.index),
		c.slot(SlotNext, c.index+1),
	}
}

func (c *Carousel) slot(pos SlotPosition, idx int) Slot {
	item := c.at(idx)
	if item == nil {
		idx = -1
	}
	return Slot{Position: pos, Item: item, Index: idx}
}

func (c *Carousel) at(idx int) *models.MediaItem {
	if idx < 0 || idx >= len(c.items) {
		return nil
	}
	return &c.items[idx]
}
