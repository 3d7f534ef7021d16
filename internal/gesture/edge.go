package gesture

import (
	"context"
	"sync"
	"time"
)

// Edge is a press or release on a logical button.
type Edge struct {
	Button  string
	Pressed bool
}

// Source delivers button edges to handler until ctx is done. Sources must
// deliver a button's press before its matching release.
type Source interface {
	Run(ctx context.Context, handler func(Edge)) error
}

// Debouncer drops edges that arrive on a button within the debounce window
// of that button's last accepted edge. It sits at the edge-source boundary.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	clock  Clock
	last   map[string]time.Time
}

// NewDebouncer creates a debouncer. A nil clock uses time.Now.
func NewDebouncer(window time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = time.Now
	}
	return &Debouncer{window: window, clock: clock, last: make(map[string]time.Time)}
}

// Accept reports whether e should be passed on.
func (d *Debouncer) Accept(e Edge) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()
	if last, ok := d.last[e.Button]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[e.Button] = now
	return true
}

// Wrap returns a handler that forwards only accepted edges to next.
func (d *Debouncer) Wrap(next func(Edge)) func(Edge) {
	return func(e Edge) {
		if d.Accept(e) {
			next(e)
		}
	}
}
