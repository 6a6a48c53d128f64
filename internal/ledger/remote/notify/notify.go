// Package notify fans per-owner change signals out to any number of
// watchers. Remote stores use it to serve Watch from a single change feed.
package notify

import (
	"context"
	"sync"
)

// Hub routes signals to the watchers of one owner. Signals collapse into at
// most one pending signal per watcher.
type Hub struct {
	idle func()

	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
	count    int
}

// NewHub returns an empty hub. idle, if not nil, is called each time the last
// watcher leaves.
func NewHub(idle func()) *Hub {
	return &Hub{
		idle:     idle,
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

// Watch registers a watcher for ownerID. The channel is closed once ctx is
// done.
func (h *Hub) Watch(ctx context.Context, ownerID string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.watchers[ownerID] == nil {
		h.watchers[ownerID] = make(map[chan struct{}]struct{})
	}

	h.watchers[ownerID][ch] = struct{}{}
	h.count++
	h.mu.Unlock()

	go func() {
		<-ctx.Done()

		h.mu.Lock()
		delete(h.watchers[ownerID], ch)

		if len(h.watchers[ownerID]) == 0 {
			delete(h.watchers, ownerID)
		}

		h.count--
		empty := h.count == 0
		close(ch)
		h.mu.Unlock()

		if empty && h.idle != nil {
			h.idle()
		}
	}()

	return ch
}

// Notify wakes the watchers of ownerID.
func (h *Hub) Notify(ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.watchers[ownerID] {
		signal(ch)
	}
}

// Broadcast wakes every watcher.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, chans := range h.watchers {
		for ch := range chans {
			signal(ch)
		}
	}
}

// Len returns the number of registered watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.count
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
