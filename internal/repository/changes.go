package repository

import "sync"

// Change topics. Every write path notifies exactly one topic; derived views
// subscribe to the topics they depend on.
const (
	TopicMedia     = "media"
	TopicFavorites = "favorites"
	TopicLabels    = "labels"
	TopicSettings  = "settings"
)

// Changes is the in-process invalidation bus between the write side
// (sync engine, favorite toggles, label edits) and the reactive query layer.
// Notifications are conflated: a subscriber that has not drained its channel
// yet sees at most one pending signal per topic.
type Changes struct {
	mu   sync.RWMutex
	subs map[string][]chan struct{}
}

// NewChanges creates a new change bus
func NewChanges() *Changes {
	return &Changes{subs: make(map[string][]chan struct{})}
}

// Subscribe returns a signal channel for the given topics. The channel has
// capacity one; a pending signal covers any number of collapsed changes
// since the handler always re-reads the store in full.
func (c *Changes) Subscribe(topics ...string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	for _, t := range topics {
		c.subs[t] = append(c.subs[t], ch)
	}
	c.mu.Unlock()
	return ch
}

// Notify signals every subscriber of the topic. Never blocks.
func (c *Changes) Notify(topic string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
