package overlay

import (
	"math"
	"time"
)

// Mode is the locked gesture for one touch sequence. A sequence picks
// exactly one mode and holds it until release; the only permitted switch
// is the immediate jump to ModeZoom when a second finger lands.
type Mode int

const (
	ModeNone Mode = iota
	ModeHorizontal
	ModeVerticalUp
	ModeVerticalDown
	ModeZoom
)

func (m Mode) String() string {
	switch m {
	case ModeHorizontal:
		return "horizontal"
	case ModeVerticalUp:
		return "vertical_up"
	case ModeVerticalDown:
		return "vertical_down"
	case ModeZoom:
		return "zoom"
	default:
		return "none"
	}
}

// Phase is a touch event's lifecycle stage.
type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
	PhaseCancel
)

// TouchEvent is one raw pointer sample. Span is the distance between
// pointers when more than one is down, 0 otherwise.
type TouchEvent struct {
	Phase    Phase
	X, Y     float64
	Pointers int
	Span     float64
	Time     time.Time
}

// Callbacks are the high-level events the engine emits. Any may be nil.
type Callbacks struct {
	Navigate        func(delta int)       // index committed by ±1
	Dismiss         func()                // swipe-down dismissal committed
	RevealDetails   func(open bool)       // details panel committed open/closed
	DetailsProgress func(p float64)       // continuous reveal progress [0,1]
	ChromeVisible   func(visible bool)    // top/bottom chrome show/hide
	Offset          func(x, y float64)    // continuous drag offset
	Zoom            func(scale, panX, panY float64)
}

// GestureConfig carries the tunables and toggles for one viewer session.
type GestureConfig struct {
	ScreenWidth  float64
	ScreenHeight float64

	SwipeToClose  bool
	SwipeToReveal bool
	IsVideo       bool    // disables zoom and double-tap
	DoubleTapZoom float64 // 2, 3 or 4; 0 disables double-tap

	// Tunables; zero values take the defaults below.
	TouchSlop        float64
	EdgeResistance   float64
	CommitFraction   float64
	CommitVelocity   float64
	RevealCommit     float64
	DetailsCloseFrac float64
	DetailsCloseVel  float64
	DismissDistance  float64
	MaxScale         float64
}

const (
	defaultTouchSlop        = 10.0
	defaultEdgeResistance   = 0.15
	defaultCommitFraction   = 0.25
	defaultCommitVelocity   = 1500.0
	defaultRevealCommit     = 0.3
	defaultDetailsCloseFrac = 0.7
	defaultDetailsCloseVel  = 1200.0
	defaultDismissDistance  = 150.0
	defaultMaxScale         = 5.0

	navigateDuration  = 250 * time.Millisecond
	snapBackDuration  = 200 * time.Millisecond
	doubleTapDuration = 200 * time.Millisecond
	doubleTapWindow   = 300 * time.Millisecond
)

func (c *GestureConfig) applyDefaults() {
	if c.TouchSlop == 0 {
		c.TouchSlop = defaultTouchSlop
	}
	if c.EdgeResistance == 0 {
		c.EdgeResistance = defaultEdgeResistance
	}
	if c.CommitFraction == 0 {
		c.CommitFraction = defaultCommitFraction
	}
	if c.CommitVelocity == 0 {
		c.CommitVelocity = defaultCommitVelocity
	}
	if c.RevealCommit == 0 {
		c.RevealCommit = defaultRevealCommit
	}
	if c.DetailsCloseFrac == 0 {
		c.DetailsCloseFrac = defaultDetailsCloseFrac
	}
	if c.DetailsCloseVel == 0 {
		c.DetailsCloseVel = defaultDetailsCloseVel
	}
	if c.DismissDistance == 0 {
		c.DismissDistance = defaultDismissDistance
	}
	if c.MaxScale == 0 {
		c.MaxScale = defaultMaxScale
	}
}

// Engine is the single-pointer gesture arbitrator for the full-screen
// viewer. It consumes raw pointer samples, locks one mode per sequence,
// accumulates continuous offsets, and resolves the release into navigate,
// dismiss, reveal, or snap-back through the animator.
type Engine struct {
	cfg      GestureConfig
	cb       Callbacks
	animator *Animator

	mode    Mode
	tracked bool

	// pre-lock accumulated displacement
	accumX, accumY float64

	lastX, lastY float64
	lastTime     time.Time
	velX, velY   float64

	offsetX, offsetY float64

	detailsOpen     bool
	detailsProgress float64
	chromeVisible   bool

	scale, panX, panY float64
	lastSpan          float64

	index, count int

	inputLocked bool // opening animation in flight

	releaseAnim *Handle
	pendingTap  *Handle
	lastTapAt   time.Time
}

// NewEngine creates a gesture engine bound to an animator.
func NewEngine(cfg GestureConfig, animator *Animator, cb Callbacks) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:           cfg,
		cb:            cb,
		animator:      animator,
		scale:         1,
		chromeVisible: true,
	}
}

// SetItems sets the carousel length and current index.
func (e *Engine) SetItems(count, index int) {
	e.count = count
	e.index = clampInt(index, 0, maxInt(count-1, 0))
}

// SetVideo switches the current item's media class, which gates zoom.
func (e *Engine) SetVideo(isVideo bool) { e.cfg.IsVideo = isVideo }

// SetInputLocked gates touch handling while the opening transition runs.
func (e *Engine) SetInputLocked(locked bool) { e.inputLocked = locked }

// Accessors for the render layer.

func (e *Engine) Mode() Mode               { return e.mode }
func (e *Engine) OffsetX() float64         { return e.offsetX }
func (e *Engine) OffsetY() float64         { return e.offsetY }
func (e *Engine) Scale() float64           { return e.scale }
func (e *Engine) Pan() (float64, float64)  { return e.panX, e.panY }
func (e *Engine) DetailsOpen() bool        { return e.detailsOpen }
func (e *Engine) DetailsProgress() float64 { return e.detailsProgress }
func (e *Engine) Index() int               { return e.index }

// HandleTouch consumes one pointer sample. The return reports whether the
// engine consumed the delta; below the lock threshold deltas stay
// unconsumed so ancestor detectors keep seeing a continuous stream.
func (e *Engine) HandleTouch(ev TouchEvent) bool {
	if e.inputLocked {
		return false
	}

	switch ev.Phase {
	case PhaseDown:
		return e.handleDown(ev)
	case PhaseMove:
		return e.handleMove(ev)
	case PhaseUp:
		return e.handleUp(ev)
	case PhaseCancel:
		e.reset()
		return false
	}
	return false
}

func (e *Engine) handleDown(ev TouchEvent) bool {
	// Ignore fresh gestures while a release animation still settles a
	// zoomed pan; a new touch during scale!=1 pans instead of re-locking.
	e.tracked = true
	e.accumX, e.accumY = 0, 0
	e.lastX, e.lastY = ev.X, ev.Y
	e.lastTime = ev.Time
	e.velX, e.velY = 0, 0
	e.lastSpan = ev.Span

	if e.releaseAnim.Running() {
		e.releaseAnim.Cancel()
	}

	e.mode = ModeNone
	if ev.Pointers >= 2 && !e.cfg.IsVideo {
		e.mode = ModeZoom
	}
	return e.mode != ModeNone
}

func (e *Engine) handleMove(ev TouchEvent) bool {
	if !e.tracked {
		return false
	}

	dx := ev.X - e.lastX
	dy := ev.Y - e.lastY
	if dt := ev.Time.Sub(e.lastTime).Seconds(); dt > 0 {
		e.velX = dx / dt
		e.velY = dy / dt
	}
	e.lastX, e.lastY = ev.X, ev.Y
	e.lastTime = ev.Time

	// Second finger jumps straight to zoom regardless of any prior lock.
	if ev.Pointers >= 2 && !e.cfg.IsVideo && e.mode != ModeZoom {
		e.mode = ModeZoom
		e.lastSpan = ev.Span
		return true
	}

	switch e.mode {
	case ModeNone:
		return e.tryLock(dx, dy)
	case ModeHorizontal:
		e.dragHorizontal(dx)
	case ModeVerticalUp:
		e.dragVerticalUp(dy)
	case ModeVerticalDown:
		e.dragVerticalDown(dy)
	case ModeZoom:
		e.dragZoom(ev, dx, dy)
	}
	return true
}

// tryLock accumulates displacement and locks a mode once the slop
// threshold is exceeded on either axis. Below threshold nothing is
// consumed.
func (e *Engine) tryLock(dx, dy float64) bool {
	e.accumX += dx
	e.accumY += dy

	if math.Abs(e.accumX) < e.cfg.TouchSlop && math.Abs(e.accumY) < e.cfg.TouchSlop {
		return false
	}

	// While zoomed in, a single-pointer drag pans instead of re-locking.
	// The pre-lock displacement is discarded so the content picks up from
	// its current position rather than hopping by the accumulated slop.
	if e.scale > 1 && !e.cfg.IsVideo {
		e.mode = ModeZoom
		return true
	}

	if math.Abs(e.accumX) > math.Abs(e.accumY) {
		e.mode = ModeHorizontal
		e.dragHorizontal(e.accumX)
		return true
	}
	if e.accumY > 0 {
		// Downward: the details panel, when engaged, always intercepts
		// over overlay-dismiss.
		if e.cfg.SwipeToClose || e.detailsProgress > 0 {
			e.mode = ModeVerticalDown
			e.dragVerticalDown(e.accumY)
			return true
		}
		return false
	}
	if e.cfg.SwipeToReveal {
		e.mode = ModeVerticalUp
		e.dragVerticalUp(e.accumY)
		return true
	}
	return false
}

// dragHorizontal accumulates the offset with edge resistance: at the first
// item dragging backward, or the last dragging forward, incoming deltas
// are scaled down so overswipe feels damped rather than blocked.
func (e *Engine) dragHorizontal(dx float64) {
	atFirst := e.index == 0 && e.offsetX+dx > 0
	atLast := e.index >= e.count-1 && e.offsetX+dx < 0
	if atFirst || atLast {
		dx *= e.cfg.EdgeResistance
	}
	e.offsetX += dx
	e.emitOffset()
}

func (e *Engine) dragVerticalUp(dy float64) {
	e.offsetY += dy
	if e.offsetY > 0 {
		e.offsetY = 0
	}
	e.setDetailsProgress(math.Min(math.Abs(e.offsetY)/(0.5*e.cfg.ScreenHeight), 1))
	e.emitOffset()
}

func (e *Engine) dragVerticalDown(dy float64) {
	if e.detailsOpen || e.detailsProgress > 0 && e.offsetY == 0 {
		// Downward drag closes the details panel, not the overlay.
		e.setDetailsProgress(math.Max(e.detailsProgress-dy/(0.5*e.cfg.ScreenHeight), 0))
		return
	}
	e.offsetY += dy
	if e.offsetY < 0 {
		e.offsetY = 0
	}
	e.emitOffset()
}

func (e *Engine) dragZoom(ev TouchEvent, dx, dy float64) {
	if e.cfg.IsVideo {
		return
	}
	if ev.Span > 0 && e.lastSpan > 0 {
		e.setScale(e.scale * (ev.Span / e.lastSpan))
	}
	if ev.Span > 0 {
		e.lastSpan = ev.Span
	}
	if e.scale > 1 {
		e.panX += dx
		e.panY += dy
		e.emitZoom()
	}
}

func (e *Engine) setScale(s float64) {
	e.scale = clampFloat(s, 1, e.cfg.MaxScale)
	if e.scale == 1 {
		// Leaving zoom resets pan and unlocks the gesture.
		e.panX, e.panY = 0, 0
		e.mode = ModeNone
	}
	e.emitZoom()
}

func (e *Engine) handleUp(ev TouchEvent) bool {
	if !e.tracked {
		return false
	}
	mode := e.mode
	consumed := mode != ModeNone

	switch mode {
	case ModeHorizontal:
		e.releaseHorizontal()
	case ModeVerticalUp:
		e.releaseVerticalUp()
	case ModeVerticalDown:
		e.releaseVerticalDown()
	case ModeZoom:
		// Pinch release keeps the current scale; nothing to resolve.
	case ModeNone:
		// Only a stationary sequence is a tap. A drag that never locked a
		// mode (e.g. upward with reveal disabled) resolves to nothing.
		if math.Abs(e.accumX) < e.cfg.TouchSlop && math.Abs(e.accumY) < e.cfg.TouchSlop {
			e.handleTap(ev)
		}
	}

	// Mode resets unconditionally at gesture end regardless of outcome.
	e.mode = ModeNone
	e.tracked = false
	e.accumX, e.accumY = 0, 0
	return consumed
}

// releaseHorizontal commits navigation on distance OR velocity; a fast
// flick commits even with small travel. The committed slide runs to a full
// screen width, then the index advances and the offset resets with no
// animation so the new center item lands centered.
func (e *Engine) releaseHorizontal() {
	w := e.cfg.ScreenWidth
	commit := math.Abs(e.offsetX) > e.cfg.CommitFraction*w ||
		math.Abs(e.velX) > e.cfg.CommitVelocity

	delta := 0
	if e.offsetX < 0 || (e.offsetX == 0 && e.velX < 0) {
		delta = 1
	} else {
		delta = -1
	}

	// Boundary overswipe never navigates past the ends.
	if delta > 0 && e.index >= e.count-1 {
		commit = false
	}
	if delta < 0 && e.index <= 0 {
		commit = false
	}

	if !commit {
		e.releaseAnim = e.animator.Tween(e.offsetX, 0, snapBackDuration, EaseOutCubic,
			func(v float64) { e.offsetX = v; e.emitOffset() }, nil)
		return
	}

	target := w
	if delta > 0 {
		target = -w
	}
	e.releaseAnim = e.animator.Tween(e.offsetX, target, navigateDuration, EaseOutCubic,
		func(v float64) { e.offsetX = v; e.emitOffset() },
		func() {
			e.index += delta
			e.offsetX = 0
			e.emitOffset()
			if e.cb.Navigate != nil {
				e.cb.Navigate(delta)
			}
		})
}

func (e *Engine) releaseVerticalUp() {
	if e.detailsProgress >= e.cfg.RevealCommit {
		e.releaseAnim = e.animator.Spring(e.detailsProgress, 1, 0,
			springStiffness, springBounceDamping,
			func(v float64) { e.setDetailsProgress(v) },
			func() {
				e.detailsOpen = true
				e.offsetY = 0
				e.emitOffset()
				if e.cb.RevealDetails != nil {
					e.cb.RevealDetails(true)
				}
			})
		return
	}
	e.releaseAnim = e.animator.Tween(e.detailsProgress, 0, snapBackDuration, EaseOutCubic,
		func(v float64) { e.setDetailsProgress(v) },
		func() {
			e.offsetY = 0
			e.emitOffset()
			e.setChrome(true)
		})
}

func (e *Engine) releaseVerticalDown() {
	if e.detailsOpen || e.detailsProgress > 0 && e.offsetY == 0 {
		closing := e.detailsProgress < e.cfg.DetailsCloseFrac ||
			e.velY > e.cfg.DetailsCloseVel
		if closing {
			e.releaseAnim = e.animator.Tween(e.detailsProgress, 0, snapBackDuration, EaseOutCubic,
				func(v float64) { e.setDetailsProgress(v) },
				func() {
					e.detailsOpen = false
					e.setChrome(true)
					if e.cb.RevealDetails != nil {
						e.cb.RevealDetails(false)
					}
				})
		} else {
			e.releaseAnim = e.animator.Spring(e.detailsProgress, 1, 0,
				springStiffness, springSnapDamping,
				func(v float64) { e.setDetailsProgress(v) }, nil)
		}
		return
	}

	if e.cfg.SwipeToClose && math.Abs(e.offsetY) > e.cfg.DismissDistance {
		// The transition animates from the dragged position; the engine
		// only commits.
		if e.cb.Dismiss != nil {
			e.cb.Dismiss()
		}
		return
	}
	e.releaseAnim = e.animator.Spring(e.offsetY, 0, e.velY,
		springStiffness, springSnapDamping,
		func(v float64) { e.offsetY = v; e.emitOffset() }, nil)
}

// handleTap resolves single versus double tap. Double-tap (images only)
// toggles zoom between 1 and the configured multiplier; single tap falls
// back to a chrome toggle, deferred by the double-tap window while a
// second tap could still arrive.
func (e *Engine) handleTap(ev TouchEvent) {
	doubleTapEnabled := e.cfg.DoubleTapZoom > 1 && !e.cfg.IsVideo

	if !doubleTapEnabled {
		e.setChrome(!e.chromeVisible)
		return
	}

	if !e.lastTapAt.IsZero() && ev.Time.Sub(e.lastTapAt) <= doubleTapWindow {
		e.lastTapAt = time.Time{}
		e.pendingTap.Cancel()
		e.toggleDoubleTapZoom()
		return
	}

	e.lastTapAt = ev.Time
	e.pendingTap.Cancel()
	e.pendingTap = e.animator.Delay(doubleTapWindow, func() {
		e.lastTapAt = time.Time{}
		e.setChrome(!e.chromeVisible)
	})
}

func (e *Engine) toggleDoubleTapZoom() {
	target := e.cfg.DoubleTapZoom
	if e.scale > 1 {
		target = 1
	}
	e.releaseAnim = e.animator.Tween(e.scale, target, doubleTapDuration, EaseInOutCubic,
		func(v float64) {
			e.scale = v
			if e.scale <= 1 {
				e.panX, e.panY = 0, 0
			}
			e.emitZoom()
		},
		func() { e.setScale(target) })
}

func (e *Engine) setDetailsProgress(p float64) {
	e.detailsProgress = clampFloat(p, 0, 1)
	// Chrome goes away as soon as the reveal is non-trivial.
	if e.detailsProgress > 0.05 && e.chromeVisible {
		e.setChrome(false)
	}
	if e.cb.DetailsProgress != nil {
		e.cb.DetailsProgress(e.detailsProgress)
	}
}

func (e *Engine) setChrome(visible bool) {
	if e.chromeVisible == visible {
		return
	}
	e.chromeVisible = visible
	if e.cb.ChromeVisible != nil {
		e.cb.ChromeVisible(visible)
	}
}

func (e *Engine) emitOffset() {
	if e.cb.Offset != nil {
		e.cb.Offset(e.offsetX, e.offsetY)
	}
}

func (e *Engine) emitZoom() {
	if e.cb.Zoom != nil {
		e.cb.Zoom(e.scale, e.panX, e.panY)
	}
}

func (e *Engine) reset() {
	e.mode = ModeNone
	e.tracked = false
	e.accumX, e.accumY = 0, 0
	e.offsetX, e.offsetY = 0, 0
	e.emitOffset()
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
