// Package notify fans change events out to streaming subscribers.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 16

// Event is a change notification.
type Event struct {
	Topic string
	Data  []byte
}

// Hub delivers published events to every subscriber of a topic.
//
// Publish never blocks: a subscriber whose queue is full misses the event.
type Hub struct {
	mutex  sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	closed bool
	logger *zap.SugaredLogger
}

// NewHub creates a hub.
func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{subs: make(map[string]map[chan Event]struct{}), logger: logger}
}

// Subscribe registers a subscriber for topic.
//
// Arguments:
//   - topic: The topic to receive.
//   - buffer: The queue length; values below 1 use DefaultBuffer.
//
// Returns:
//   - <-chan Event: The event channel, closed by the returned cancel func or by Close.
//   - func(): Unsubscribes; safe to call more than once.
func (h *Hub) Subscribe(topic string, buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(topic, ch) })
	}
}

func (h *Hub) unsubscribe(topic string, ch chan Event) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.subs[topic][ch]; ok {
		delete(h.subs[topic], ch)
		close(ch)
	}
}

// Publish delivers ev to the subscribers of ev.Topic and returns how many received it.
func (h *Hub) Publish(ev Event) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	delivered := 0
	for ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
			delivered++
		default:
			h.logger.Debugw("subscriber queue full, dropping event", "topic", ev.Topic)
		}
	}
	return delivered
}

// Subscribers returns the number of subscribers of topic.
func (h *Hub) Subscribers(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subs[topic])
}

// Close closes every subscriber channel. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.subs {
		for ch := range subs {
			close(ch)
		}
		delete(h.subs, topic)
	}
}
