// Package sse fans sync progress events out to stream subscribers.
package sse

import "sync"

type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers a listener on a topic and returns the event
// channel plus a cancel function that must be called exactly once.
func (h *Hub) Subscribe(topic string) (chan []byte, func()) {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[chan []byte]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if subscribers, ok := h.subs[topic]; ok {
			delete(subscribers, ch)
			if len(subscribers) == 0 {
				delete(h.subs, topic)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
}

// Broadcast delivers the payload to every subscriber of the topic.
// Slow subscribers are skipped rather than blocking the sync loop.
func (h *Hub) Broadcast(topic string, payload []byte) {
	if topic == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
}
