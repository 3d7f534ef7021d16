package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives every published event, e.g. to forward it off-box.
// Send must not block.
type Sink interface {
	Send(Event)
	Close()
}

// Hub fans events out to subscribers and keeps the most recent ones for
// late joiners. Subscribers that fall behind miss events rather than
// stalling the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool

	recent *History
	sinks  []Sink
	now    func() time.Time
	logger *zap.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSink forwards every event to s.
func WithSink(s Sink) HubOption {
	return func(h *Hub) { h.sinks = append(h.sinks, s) }
}

// WithHubLogger sets the logger.
func WithHubLogger(l *zap.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates a hub remembering up to history events.
func NewHub(history int, opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[int]chan Event),
		recent: NewHistory(history),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Publish stamps and broadcasts an event.
func (h *Hub) Publish(t Type, data map[string]any) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		Timestamp: h.now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return e
	}

	h.recent.Add(e)
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Debug("subscriber behind, event dropped", zap.Int("subscriber", id), zap.String("type", string(t)))
		}
	}
	for _, s := range h.sinks {
		s.Send(e)
	}
	return e
}

// Subscribe returns a channel of future events and a cancel func that
// closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Recent returns up to limit of the latest events, oldest first.
func (h *Hub) Recent(limit int) []Event {
	return h.recent.Tail(limit)
}

// Last returns the most recent event of type t.
func (h *Hub) Last(t Type) (Event, bool) {
	return h.recent.Last(t)
}

// Close closes every subscriber channel and sink. Later publishes are
// dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	for _, s := range h.sinks {
		s.Close()
	}
}
