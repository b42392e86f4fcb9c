package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTweenRunsToCompletion(t *testing.T) {
	a := NewAnimator()

	var last float64
	done := false
	a.Tween(0, 100, 200*time.Millisecond, EaseLinear,
		func(v float64) { last = v },
		func() { done = true })

	a.Advance(100 * time.Millisecond)
	assert.InDelta(t, 50, last, 0.001)
	assert.False(t, done)

	a.Advance(100 * time.Millisecond)
	assert.InDelta(t, 100, last, 0.001)
	assert.True(t, done)
	assert.Equal(t, 0, a.Active())
}

func TestTweenCancelSkipsCompletion(t *testing.T) {
	a := NewAnimator()

	var last float64
	done := false
	h := a.Tween(0, 100, 200*time.Millisecond, EaseLinear,
		func(v float64) { last = v },
		func() { done = true })

	a.Advance(100 * time.Millisecond)
	h.Cancel()
	a.Advance(500 * time.Millisecond)

	assert.InDelta(t, 50, last, 0.001)
	assert.False(t, done, "canceled animation must not complete")
	assert.False(t, h.Running())
}

func TestDelayFiresOnceAfterDuration(t *testing.T) {
	a := NewAnimator()

	fired := 0
	a.Delay(100*time.Millisecond, func() { fired++ })

	a.Advance(50 * time.Millisecond)
	assert.Equal(t, 0, fired)
	a.Advance(60 * time.Millisecond)
	assert.Equal(t, 1, fired)
	a.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestSpringSettlesAtTarget(t *testing.T) {
	a := NewAnimator()

	var last float64
	done := false
	a.Spring(0, 1, 0, springStiffness, springSnapDamping,
		func(v float64) { last = v },
		func() { done = true })

	for i := 0; i < 300 && !done; i++ {
		a.Advance(16 * time.Millisecond)
	}

	require.True(t, done, "spring never settled")
	assert.InDelta(t, 1, last, 0.001)
}

func TestSpringLowDampingOvershoots(t *testing.T) {
	a := NewAnimator()

	max := 0.0
	done := false
	a.Spring(0, 1, 0, springStiffness, springBounceDamping,
		func(v float64) {
			if v > max {
				max = v
			}
		},
		func() { done = true })

	for i := 0; i < 600 && !done; i++ {
		a.Advance(16 * time.Millisecond)
	}

	require.True(t, done)
	assert.Greater(t, max, 1.0, "underdamped spring should overshoot the target")
}

func TestCancelAllStopsEverything(t *testing.T) {
	a := NewAnimator()

	fired := false
	a.Tween(0, 1, time.Second, nil, nil, func() { fired = true })
	a.Delay(time.Second, func() { fired = true })
	require.Equal(t, 2, a.Active())

	a.CancelAll()
	a.Advance(5 * time.Second)

	assert.Equal(t, 0, a.Active())
	assert.False(t, fired)
}
