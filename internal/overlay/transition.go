package overlay

import "time"

// Rect is an axis-aligned rectangle in screen coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Lerp interpolates between two rects.
func (r Rect) Lerp(to Rect, t float64) Rect {
	return Rect{
		X: r.X + (to.X-r.X)*t,
		Y: r.Y + (to.Y-r.Y)*t,
		W: r.W + (to.W-r.W)*t,
		H: r.H + (to.H-r.H)*t,
	}
}

// Transform is the shared-element frame the render layer applies each
// step: the element's rect, its corner radius, and the scrim opacity
// behind it.
type Transform struct {
	Frame        Rect
	CornerRadius float64
	ScrimAlpha   float64
}

// TransitionPhase tracks what the coordinator is currently doing.
type TransitionPhase int

const (
	PhaseIdle TransitionPhase = iota
	PhaseOpening
	PhaseOpen
	PhaseClosing
)

// TransitionConfig describes the two endpoints of the shared-element
// move: the grid thumbnail's rect and radius, and the full-screen rect.
type TransitionConfig struct {
	ThumbRect    Rect
	ThumbRadius  float64
	ScreenRect   Rect
	HasThumbRect bool // false when the source cell scrolled away
}

const openDuration = 380 * time.Millisecond

// Transition coordinates the shared-element open and close animation.
// Progress runs 0 (grid thumbnail) to 1 (full screen); close is the same
// path reversed, and an interrupted open closes from wherever it got to.
type Transition struct {
	cfg      TransitionConfig
	animator *Animator

	phase    TransitionPhase
	progress float64

	anim  *Handle
	apply func(Transform)
}

// NewTransition creates a transition bound to an animator. apply receives
// each intermediate transform; it may be nil.
func NewTransition(cfg TransitionConfig, animator *Animator, apply func(Transform)) *Transition {
	return &Transition{cfg: cfg, animator: animator, apply: apply}
}

// Phase returns the current phase.
func (t *Transition) Phase() TransitionPhase { return t.phase }

// Progress returns the current open progress in [0,1].
func (t *Transition) Progress() float64 { return t.progress }

// transformAt derives the frame for a given progress. Rect, corner radius
// and scrim always move in lockstep from the single progress value.
func (t *Transition) transformAt(p float64) Transform {
	if !t.cfg.HasThumbRect {
		// No source cell: fade in place at full size.
		return Transform{
			Frame:        t.cfg.ScreenRect,
			CornerRadius: 0,
			ScrimAlpha:   p,
		}
	}
	return Transform{
		Frame:        t.cfg.ThumbRect.Lerp(t.cfg.ScreenRect, p),
		CornerRadius: t.cfg.ThumbRadius * (1 - p),
		ScrimAlpha:   p,
	}
}

func (t *Transition) setProgress(p float64) {
	t.progress = p
	if t.apply != nil {
		t.apply(t.transformAt(p))
	}
}

// Open runs the thumbnail-to-fullscreen animation. When no thumbnail rect
// is known the element snaps to full size and only the scrim fades.
// onDone fires once the viewer is fully open.
func (t *Transition) Open(onDone func()) {
	t.anim.Cancel()
	t.phase = PhaseOpening

	d := openDuration
	if !t.cfg.HasThumbRect {
		d = openDuration / 2
	}

	t.anim = t.animator.Tween(t.progress, 1, d, EaseInOutCubic,
		func(v float64) { t.setProgress(v) },
		func() {
			t.phase = PhaseOpen
			if onDone != nil {
				onDone()
			}
		})
}

// Close reverses toward the thumbnail from the current progress. Closing
// mid-open does not restart from 1; the element turns around wherever the
// open animation left it. onDone fires when the element is back in the
// grid.
func (t *Transition) Close(onDone func()) {
	t.anim.Cancel()
	t.phase = PhaseClosing

	// Scale the duration by the distance left so a barely-open viewer
	// closes quickly.
	d := time.Duration(float64(openDuration) * t.progress)

	t.anim = t.animator.Tween(t.progress, 0, d, EaseOutCubic,
		func(v float64) { t.setProgress(v) },
		func() {
			t.phase = PhaseIdle
			if onDone != nil {
				onDone()
			}
		})
}

// CloseFromDrag closes starting from a swipe-down displaced position: the
// element is offset and shrunk by the drag, and animates from there to the
// thumbnail rect rather than jumping back to center first.
func (t *Transition) CloseFromDrag(offsetX, offsetY float64, onDone func()) {
	t.anim.Cancel()
	t.phase = PhaseClosing

	// Dragging down shrinks the element toward 80% at full dismiss pull.
	pull := offsetY / (0.5 * t.cfg.ScreenRect.H)
	if pull < 0 {
		pull = 0
	}
	if pull > 1 {
		pull = 1
	}
	scale := 1 - 0.2*pull

	start := t.cfg.ScreenRect
	start.W *= scale
	start.H *= scale
	start.X += offsetX + (t.cfg.ScreenRect.W-start.W)/2
	start.Y += offsetY + (t.cfg.ScreenRect.H-start.H)/2

	end := t.cfg.ScreenRect
	if t.cfg.HasThumbRect {
		end = t.cfg.ThumbRect
	}
	startScrim := t.progress * (1 - 0.5*pull)

	t.anim = t.animator.Tween(0, 1, openDuration*2/3, EaseOutCubic,
		func(v float64) {
			t.progress = (1 - v) * t.progress
			if t.apply != nil {
				t.apply(Transform{
					Frame:        start.Lerp(end, v),
					CornerRadius: t.cfg.ThumbRadius * v,
					ScrimAlpha:   startScrim * (1 - v),
				})
			}
		},
		func() {
			t.phase = PhaseIdle
			t.progress = 0
			if onDone != nil {
				onDone()
			}
		})
}

// Retarget swaps the thumbnail endpoint, used when the viewer navigated to
// a different item and the close should land on that item's grid cell.
func (t *Transition) Retarget(thumb Rect, radius float64, hasThumb bool) {
	t.cfg.ThumbRect = thumb
	t.cfg.ThumbRadius = radius
	t.cfg.HasThumbRect = hasThumb
}
