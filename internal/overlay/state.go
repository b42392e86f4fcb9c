package overlay

import (
	"sync"

	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/reactive"
)

// State is the viewer overlay's visibility and position. It exists once,
// owned by the top-level coordinator, and changes only through the
// transition methods below; gesture-driven and action-driven updates both
// funnel through the same mutex.
type State struct {
	Visible       bool
	MediaType     models.MediaType
	AlbumID       string
	SelectedIndex int
	SearchQuery   string
	ThumbBounds   *Rect // grid cell the opening animation originates from
}

// StateOwner serializes overlay state transitions and publishes each new
// state on a feed.
type StateOwner struct {
	mu    sync.Mutex
	state State
	feed  *reactive.Feed[State]
}

// NewStateOwner creates the owner with a hidden initial state.
func NewStateOwner() *StateOwner {
	o := &StateOwner{feed: reactive.NewFeed[State]()}
	o.feed.Publish(o.state)
	return o
}

// Feed exposes the state stream for subscribers.
func (o *StateOwner) Feed() *reactive.Feed[State] { return o.feed }

// Get returns the current state.
func (o *StateOwner) Get() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Show opens the overlay on the given view position. A nil thumb means the
// opening animation has no source rect and snaps instead.
func (o *StateOwner) Show(mediaType models.MediaType, albumID string, index int, searchQuery string, thumb *Rect) {
	o.mu.Lock()
	o.state = State{
		Visible:       true,
		MediaType:     mediaType,
		AlbumID:       albumID,
		SelectedIndex: index,
		SearchQuery:   searchQuery,
		ThumbBounds:   thumb,
	}
	s := o.state
	o.mu.Unlock()
	o.feed.Publish(s)
}

// Hide closes the overlay, clearing the position fields.
func (o *StateOwner) Hide() {
	o.mu.Lock()
	o.state = State{}
	s := o.state
	o.mu.Unlock()
	o.feed.Publish(s)
}

// SetIndex moves the selection to an absolute index while visible.
func (o *StateOwner) SetIndex(index int) {
	o.mu.Lock()
	if !o.state.Visible || index < 0 {
		o.mu.Unlock()
		return
	}
	o.state.SelectedIndex = index
	s := o.state
	o.mu.Unlock()
	o.feed.Publish(s)
}

// AdvanceIndex moves the selection by delta, flooring at zero.
func (o *StateOwner) AdvanceIndex(delta int) {
	o.mu.Lock()
	if !o.state.Visible {
		o.mu.Unlock()
		return
	}
	o.state.SelectedIndex = maxInt(o.state.SelectedIndex+delta, 0)
	s := o.state
	o.mu.Unlock()
	o.feed.Publish(s)
}
