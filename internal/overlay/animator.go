// Package overlay hosts the full-screen viewer's interaction core: the
// single-pointer gesture state machine, the animation stepper it drives,
// the shared-element open/close transition, and the slot-based carousel.
// Everything here is pure logic stepped with explicit time; the rendering
// layer feeds touches in and applies the resulting offsets and transforms.
package overlay

import (
	"math"
	"sync"
	"time"
)

// EaseFunc maps linear progress [0,1] to eased progress.
type EaseFunc func(t float64) float64

// EaseLinear is the identity easing.
func EaseLinear(t float64) float64 { return t }

// EaseOutCubic decelerates toward the end.
func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOutCubic accelerates then decelerates.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

type animation struct {
	step   func(dt float64) bool
	onDone func()
	done   bool
}

// Handle refers to a scheduled animation and can cancel it mid-flight.
// A canceled animation stops where it is; its completion callback never
// fires.
type Handle struct {
	a    *Animator
	anim *animation
}

// Cancel stops the animation without completing it. Safe on nil and after
// completion.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.a.mu.Lock()
	h.anim.done = true
	h.a.mu.Unlock()
}

// Running reports whether the animation is still active.
func (h *Handle) Running() bool {
	if h == nil {
		return false
	}
	h.a.mu.Lock()
	defer h.a.mu.Unlock()
	return !h.anim.done
}

// Animator steps active animations with explicit delta time. The render
// loop calls Advance once per frame; tests call it with synthetic steps.
type Animator struct {
	mu    sync.Mutex
	anims []*animation
}

// NewAnimator creates an empty animator.
func NewAnimator() *Animator {
	return &Animator{}
}

// Advance steps every active animation by dt, running completion callbacks
// outside the lock.
func (a *Animator) Advance(dt time.Duration) {
	secs := dt.Seconds()

	a.mu.Lock()
	var finished []func()
	kept := a.anims[:0]
	for _, anim := range a.anims {
		if anim.done {
			continue
		}
		if anim.step(secs) {
			anim.done = true
			if anim.onDone != nil {
				finished = append(finished, anim.onDone)
			}
			continue
		}
		kept = append(kept, anim)
	}
	a.anims = kept
	a.mu.Unlock()

	for _, fn := range finished {
		fn()
	}
}

// Active returns the number of in-flight animations.
func (a *Animator) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, anim := range a.anims {
		if !anim.done {
			n++
		}
	}
	return n
}

// CancelAll stops everything without completing; used on teardown so no
// animation outlives its view.
func (a *Animator) CancelAll() {
	a.mu.Lock()
	for _, anim := range a.anims {
		anim.done = true
	}
	a.anims = nil
	a.mu.Unlock()
}

func (a *Animator) add(anim *animation) *Handle {
	a.mu.Lock()
	a.anims = append(a.anims, anim)
	a.mu.Unlock()
	return &Handle{a: a, anim: anim}
}

// Tween animates a value from -> to over the duration with the given
// easing, applying each intermediate value. apply and onDone may be nil.
func (a *Animator) Tween(from, to float64, d time.Duration, ease EaseFunc, apply func(v float64), onDone func()) *Handle {
	if ease == nil {
		ease = EaseLinear
	}
	total := d.Seconds()
	elapsed := 0.0

	return a.add(&animation{
		step: func(dt float64) bool {
			elapsed += dt
			t := 1.0
			if total > 0 && elapsed < total {
				t = elapsed / total
			}
			if apply != nil {
				apply(from + (to-from)*ease(t))
			}
			return t >= 1
		},
		onDone: onDone,
	})
}

// Delay schedules a callback after the duration; Cancel prevents it.
func (a *Animator) Delay(d time.Duration, fn func()) *Handle {
	return a.Tween(0, 1, d, EaseLinear, nil, fn)
}

// Spring animates a value toward target as a damped harmonic oscillator
// with the given initial velocity. Lower damping ratios overshoot; 1.0 is
// critically damped. The value snaps to target when settled.
func (a *Animator) Spring(from, target, velocity, stiffness, dampingRatio float64, apply func(v float64), onDone func()) *Handle {
	x := from
	v := velocity
	damping := 2 * dampingRatio * math.Sqrt(stiffness)

	return a.add(&animation{
		step: func(dt float64) bool {
			// Sub-step for stability at large frame deltas.
			const maxStep = 1.0 / 120.0
			for dt > 0 {
				h := math.Min(dt, maxStep)
				dt -= h
				accel := -stiffness*(x-target) - damping*v
				v += accel * h
				x += v * h
			}
			if math.Abs(x-target) < 0.001 && math.Abs(v) < 0.01 {
				if apply != nil {
					apply(target)
				}
				return true
			}
			if apply != nil {
				apply(x)
			}
			return false
		},
		onDone: onDone,
	})
}

// Spring presets used by the release animations.
const (
	springStiffness     = 400.0
	springSnapDamping   = 1.0  // no overshoot
	springBounceDamping = 0.55 // medium bounce
)
