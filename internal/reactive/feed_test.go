package reactive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReportsWhetherAnythingWasPublished(t *testing.T) {
	f := NewFeed[int]()
	_, ok := f.Get()
	assert.False(t, ok)

	f.Publish(7)
	v, ok := f.Get()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestSeededFeedDeliversImmediately(t *testing.T) {
	f := NewFeedOf("hello")
	sub := f.Subscribe()
	defer sub.Cancel()

	select {
	case v := <-sub.C:
		assert.Equal(t, "hello", v)
	default:
		t.Fatal("seeded value not delivered to a new subscriber")
	}
}

func TestLateSubscriberSeesCurrentValue(t *testing.T) {
	f := NewFeed[int]()
	f.Publish(1)
	f.Publish(2)

	sub := f.Subscribe()
	defer sub.Cancel()
	assert.Equal(t, 2, <-sub.C)
}

func TestSlowSubscriberSkipsButNeverRegresses(t *testing.T) {
	f := NewFeed[int]()
	sub := f.Subscribe()
	defer sub.Cancel()

	// Nobody drains between publishes, so intermediate values are conflated.
	for i := 1; i <= 100; i++ {
		f.Publish(i)
	}

	v := <-sub.C
	assert.Equal(t, 100, v, "pending delivery replaced by the newest value")

	select {
	case extra := <-sub.C:
		t.Fatalf("unexpected second delivery %d", extra)
	default:
	}
}

func TestEachSubscriberDrainsIndependently(t *testing.T) {
	f := NewFeed[int]()
	a := f.Subscribe()
	b := f.Subscribe()
	defer a.Cancel()
	defer b.Cancel()

	f.Publish(1)
	require.Equal(t, 1, <-a.C)

	f.Publish(2)
	assert.Equal(t, 2, <-a.C)
	assert.Equal(t, 2, <-b.C, "b conflated 1 away, sees only the latest")
}

func TestCancelStopsDeliveries(t *testing.T) {
	f := NewFeed[int]()
	sub := f.Subscribe()
	sub.Cancel()
	sub.Cancel() // idempotent

	f.Publish(9)
	select {
	case <-sub.C:
		t.Fatal("delivery after cancel")
	default:
	}
}

func TestConcurrentPublishersNeverDeliverStaleAfterNewer(t *testing.T) {
	f := NewFeed[int]()
	sub := f.Subscribe()
	defer sub.Cancel()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				f.Publish(i)
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	// Per-subscriber ordering: after the writers finish, the final delivery
	// must equal the feed's current value.
	<-done
	var last int
	for {
		select {
		case v := <-sub.C:
			last = v
			continue
		default:
		}
		break
	}
	cur, ok := f.Get()
	require.True(t, ok)
	assert.Equal(t, cur, last)
}
