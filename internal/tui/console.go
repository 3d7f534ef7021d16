package tui

import (
	"context"
	"sync"

	"github.com/nixlim/pianod/internal/gesture"
	"github.com/nixlim/pianod/internal/status"
)

// Console stands in for the front panel on machines without GPIO. It is a
// status.Indicator, remembering the level for the model to render, and a
// gesture.Source fed by key presses.
type Console struct {
	mu      sync.Mutex
	level   status.Level
	lit     bool
	closed  bool
	handler func(gesture.Edge)
}

// NewConsole creates a dark console.
func NewConsole() *Console {
	return &Console{}
}

// Set implements status.Indicator.
func (c *Console) Set(l status.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.level = l
	c.lit = true
}

// Off implements status.Indicator.
func (c *Console) Off() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = status.Off
	c.lit = false
}

// Close implements status.Indicator.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Level returns the level last set and whether the indicator is powered.
func (c *Console) Level() (status.Level, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level, c.lit
}

// Run implements gesture.Source. Edges produced by the model are delivered
// to handler until ctx is done.
func (c *Console) Run(ctx context.Context, handler func(gesture.Edge)) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	<-ctx.Done()

	c.mu.Lock()
	c.handler = nil
	c.mu.Unlock()
	return nil
}

func (c *Console) emit(e gesture.Edge) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(e)
	}
}
