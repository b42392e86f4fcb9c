// Package reactive provides the continuously-updating value primitive the
// query layer is built on. A Feed holds the latest value and pushes every
// newer value to its subscribers; deliveries are conflated per subscriber,
// so a slow consumer skips intermediate values but never observes a stale
// one after a newer one.
package reactive

import "sync"

// Feed is a single continuously-updating value.
type Feed[T any] struct {
	mu       sync.Mutex
	value    T
	hasValue bool
	subs     map[uint64]chan T
	nextSub  uint64
}

// NewFeed creates an empty feed; subscribers see nothing until the first
// Publish.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[uint64]chan T)}
}

// NewFeedOf creates a feed seeded with an initial value.
func NewFeedOf[T any](v T) *Feed[T] {
	f := NewFeed[T]()
	f.value = v
	f.hasValue = true
	return f
}

// Publish stores v as the current value and offers it to every subscriber.
// A subscriber whose buffer still holds an undelivered value has that value
// replaced, keeping emissions totally ordered per subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.value = v
	f.hasValue = true

	for _, ch := range f.subs {
		select {
		case ch <- v:
		default:
			// Replace the pending value with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Get returns the current value; the second return reports whether a value
// has ever been published.
func (f *Feed[T]) Get() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.hasValue
}

// Subscription is a live interest in a feed. Receive from C; Cancel when
// done to release the registration.
type Subscription[T any] struct {
	C    <-chan T
	feed *Feed[T]
	id   uint64
	ch   chan T
}

// Subscribe registers a new subscriber. If the feed already has a value it
// is delivered immediately, so late subscribers do not miss the current
// state.
func (f *Feed[T]) Subscribe() *Subscription[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan T, 1)
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch

	if f.hasValue {
		ch <- f.value
	}

	return &Subscription[T]{C: ch, feed: f, id: id, ch: ch}
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	delete(s.feed.subs, s.id)
}
