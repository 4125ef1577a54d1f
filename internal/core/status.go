// internal/core/status.go
package core

import (
	"sync"
	"time"
)

// StatusEvent is one progress notification for live observers.
type StatusEvent struct {
	Type      string    `json:"type"` // turn_started, weaving_round, turn_complete, pulse
	Message   string    `json:"message,omitempty"`
	Round     int       `json:"round,omitempty"`
	Coherence float32   `json:"coherence,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusHub fans status events out to subscribers. Slow subscribers drop
// events rather than block a turn.
type StatusHub struct {
	mu   sync.Mutex
	subs map[chan StatusEvent]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{subs: map[chan StatusEvent]struct{}{}}
}

// Subscribe returns an event channel and an unsubscribe func.
func (h *StatusHub) Subscribe() (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has room.
func (h *StatusHub) Publish(evt StatusEvent) {
	evt.Timestamp = time.Now().UTC()
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount is used by the health endpoint.
func (h *StatusHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
