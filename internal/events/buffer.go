package events

import "sync"

// History keeps the most recent events in publish order, dropping the oldest
// once full. It is safe for concurrent use.
type History struct {
	mu   sync.RWMutex
	ring []Event
	next int  // slot the next event is written to
	full bool // every slot holds an event
}

// NewHistory returns a History holding up to size events. Sizes below 1
// are raised to 1.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{ring: make([]Event, size)}
}

// Add records e, evicting the oldest event when full.
func (h *History) Add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = e
	h.next++
	if h.next == len(h.ring) {
		h.next = 0
		h.full = true
	}
}

// Tail returns up to n of the newest events, oldest first. n <= 0 returns
// everything held.
func (h *History) Tail(n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.lenLocked()
	if n <= 0 || n > size {
		n = size
	}
	if n == 0 {
		return nil
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = h.ring[h.indexLocked(size-n+i)]
	}
	return out
}

// Last returns the newest event of type t.
func (h *History) Last(t Type) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := h.lenLocked() - 1; i >= 0; i-- {
		if e := h.ring[h.indexLocked(i)]; e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

// Len returns how many events are held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lenLocked()
}

// Size returns the maximum number of events held.
func (h *History) Size() int {
	return len(h.ring)
}

func (h *History) lenLocked() int {
	if h.full {
		return len(h.ring)
	}
	return h.next
}

// indexLocked maps the i-th oldest event to its slot.
func (h *History) indexLocked(i int) int {
	if !h.full {
		return i
	}
	return (h.next + i) % len(h.ring)
}
