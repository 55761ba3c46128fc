// Package realtime hosts the live search sessions of the web server. Each
// browser tab holds one websocket Session that owns a mirror of its search
// page and drives it through the search orchestrator. Sessions share a Hub
// that fans out events which concern every open page, such as a listing
// entering or leaving the homepage "top 3" block.
//
// Fan-out is best effort: a listener whose buffer is full drops the event.
// There is no persistence or replay.
package realtime

import (
	"sync"
)

// Event types carried by the hub.
const (
	EventFeatured = "featured"
)

// Event is the hub envelope.
type Event struct {
	Type       string `json:"type"`
	PropertyID int    `json:"property_id"`
	Featured   bool   `json:"featured"`
	// Origin is the id of the session that caused the event.
	Origin string `json:"origin,omitempty"`
}

// Hub is an in-memory fan-out dispatcher. Each registered listener receives
// events on its own buffered channel; an event that does not fit is dropped
// for that listener only.
//
// The hub is concurrency-safe.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a listener. Callers must Unregister the returned id.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers ev to every listener.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the number of active listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
