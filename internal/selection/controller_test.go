package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photonav/gallery/internal/mediaindex"
	"github.com/photonav/gallery/internal/models"
)

type fakeIndex struct {
	mu      sync.Mutex
	trashed []int64
	moved   []int64
}

func (f *fakeIndex) QueryImages(context.Context) ([]mediaindex.Entry, error) { return nil, nil }
func (f *fakeIndex) QueryVideos(context.Context) ([]mediaindex.Entry, error) { return nil, nil }
func (f *fakeIndex) QueryTrashed(context.Context) ([]models.TrashedItem, error) {
	return nil, nil
}

func (f *fakeIndex) RequestTrash(ctx context.Context, ids []int64) (*mediaindex.Confirmation, error) {
	return mediaindex.NewConfirmation(mediaindex.ActionTrash, ids, func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.trashed = append(f.trashed, ids...)
		return nil
	}), nil
}

func (f *fakeIndex) RequestRestore(ctx context.Context, ids []int64) (*mediaindex.Confirmation, error) {
	return mediaindex.NewConfirmation(mediaindex.ActionRestore, ids, nil), nil
}

func (f *fakeIndex) RequestDelete(ctx context.Context, ids []int64) (*mediaindex.Confirmation, error) {
	return mediaindex.NewConfirmation(mediaindex.ActionPermanentDelete, ids, nil), nil
}

func (f *fakeIndex) Copy(ctx context.Context, items []models.MediaItem, dest string) (*mediaindex.CopyResult, error) {
	return &mediaindex.CopyResult{Success: true, Completed: len(items)}, nil
}

func (f *fakeIndex) Move(ctx context.Context, items []models.MediaItem, dest string) (*mediaindex.CopyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		f.moved = append(f.moved, it.ID)
	}
	return &mediaindex.CopyResult{Success: true, Completed: len(items)}, nil
}

func (f *fakeIndex) trashedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.trashed...)
}

func item(id int64) models.MediaItem {
	var it models.MediaItem
	it.ID = id
	return it
}

func TestEnterRequiresAnchor(t *testing.T) {
	c := NewController(&fakeIndex{}, nil, nil)
	require.Equal(t, ModeIdle, c.Mode())

	c.Enter(item(1))
	assert.Equal(t, ModeSelecting, c.Mode())
	assert.True(t, c.IsSelected(1))
	assert.Len(t, c.Items(), 1)
}

func TestToggleMembership(t *testing.T) {
	c := NewController(&fakeIndex{}, nil, nil)
	c.Enter(item(1))
	c.Toggle(item(2))
	c.Toggle(item(3))
	assert.Len(t, c.Items(), 3)

	c.Toggle(item(2))
	assert.False(t, c.IsSelected(2))
	assert.Len(t, c.Items(), 2)
	assert.Equal(t, ModeSelecting, c.Mode())
}

func TestEmptySetAutoclearsToIdle(t *testing.T) {
	c := NewController(&fakeIndex{}, nil, nil)
	c.Enter(item(1))
	c.Toggle(item(1))

	assert.Equal(t, ModeIdle, c.Mode())
	assert.Empty(t, c.Items())
}

func TestDeleteWaitsForConfirmation(t *testing.T) {
	idx := &fakeIndex{}
	resynced := make(chan struct{}, 1)
	c := NewController(idx, nil, func() { resynced <- struct{}{} })
	c.Enter(item(1))
	c.Toggle(item(2))

	conf, err := c.RequestDelete(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conf)

	// Nothing mutates until the user accepts.
	assert.Equal(t, ModeSelecting, c.Mode())
	assert.Empty(t, idx.trashedIDs())

	require.NoError(t, conf.Accept(context.Background()))
	assert.ElementsMatch(t, []int64{1, 2}, idx.trashedIDs())

	require.Eventually(t, func() bool { return c.Mode() == ModeIdle }, time.Second, 5*time.Millisecond)
	select {
	case <-resynced:
	case <-time.After(time.Second):
		t.Fatal("resync never requested after accepted delete")
	}
}

func TestDeleteCancelKeepsSelection(t *testing.T) {
	idx := &fakeIndex{}
	c := NewController(idx, nil, func() { t.Error("cancel must not resync") })
	c.Enter(item(1))

	conf, err := c.RequestDelete(context.Background())
	require.NoError(t, err)
	conf.Cancel()

	// Cancel is a normal outcome: selection stays active, catalog untouched.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, ModeSelecting, c.Mode())
	assert.True(t, c.IsSelected(1))
	assert.Empty(t, idx.trashedIDs())
}

func TestMoveClearsSelectionAndResyncs(t *testing.T) {
	idx := &fakeIndex{}
	resynced := false
	c := NewController(idx, nil, func() { resynced = true })
	c.Enter(item(4))

	res, err := c.Move(context.Background(), "bucket-9")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, ModeIdle, c.Mode())
	assert.True(t, resynced)
}

func TestShareFailureKeepsSelection(t *testing.T) {
	c := NewController(&fakeIndex{}, func(context.Context, []models.MediaItem) error {
		return errors.New("share surface unavailable")
	}, nil)
	c.Enter(item(1))

	require.Error(t, c.Share(context.Background()))
	assert.Equal(t, ModeSelecting, c.Mode())
}
