package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, debounce time.Duration) (*ChangeWatcher, *atomic.Int32, string) {
	t.Helper()
	var fired atomic.Int32
	w, err := NewChangeWatcher(func() { fired.Add(1) })
	require.NoError(t, err)
	w.debounce = debounce
	t.Cleanup(func() { w.Close() })

	dir := t.TempDir()
	require.NoError(t, w.Register(dir))
	return w, &fired, dir
}

func TestBurstCollapsesToOneTrailingCallback(t *testing.T) {
	w, fired, dir := newTestWatcher(t, 150*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, fmt.Sprintf("img-%d.jpg", i)), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 },
		2*time.Second, 10*time.Millisecond, "burst must fire exactly one callback")

	// Quiescence: no further callback without further events.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestSeparatedBurstsFireSeparately(t *testing.T) {
	w, fired, dir := newTestWatcher(t, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return fired.Load() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return fired.Load() == 2 },
		2*time.Second, 10*time.Millisecond)
}

func TestDoubleRegisterIsANoOp(t *testing.T) {
	w, _, dir := newTestWatcher(t, time.Second)
	assert.NoError(t, w.Register(dir))
}

func TestUnregisterUnknownPathIsANoOp(t *testing.T) {
	w, _, _ := newTestWatcher(t, time.Second)
	assert.NoError(t, w.Unregister("/nowhere/special"))
}

func TestCloseStopsPendingCallback(t *testing.T) {
	w, fired, dir := newTestWatcher(t, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644))
	// Close before the debounce window elapses.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Close())

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
