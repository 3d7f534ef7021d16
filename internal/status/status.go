// Package status derives the appliance's single status indicator from engine
// health and controller presence.
package status

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the process-wide status shown on the indicator.
type Level int

const (
	Off Level = iota
	Starting
	Ready
	ReadyNoInput
	Stopping
	Error
)

func (l Level) String() string {
	switch l {
	case Off:
		return "OFF"
	case Starting:
		return "STARTING"
	case Ready:
		return "READY"
	case ReadyNoInput:
		return "READY_NO_INPUT"
	case Stopping:
		return "STOPPING"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Pattern is how an indicator renders a level. A zero Pattern is dark.
type Pattern struct {
	Solid bool
	On    time.Duration
	Off   time.Duration
}

// Blinking reports whether the pattern alternates.
func (p Pattern) Blinking() bool {
	return !p.Solid && p.On > 0
}

// PatternFor returns the rendering contract for a level. Both ready levels
// are solid; starting, stopping and error blink at distinct cadences.
func PatternFor(l Level) Pattern {
	switch l {
	case Ready, ReadyNoInput:
		return Pattern{Solid: true}
	case Starting:
		return Pattern{On: 300 * time.Millisecond, Off: 300 * time.Millisecond}
	case Stopping:
		return Pattern{On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
	case Error:
		return Pattern{On: 800 * time.Millisecond, Off: 200 * time.Millisecond}
	default:
		return Pattern{}
	}
}

// Signals are the health inputs to Derive.
type Signals struct {
	Running  bool // engine process alive
	Starting bool // engine in its start settle window
	HasInput bool // at least one controller connected
}

// Derive maps health signals to a level.
func Derive(s Signals) Level {
	switch {
	case !s.Running:
		return Error
	case s.Starting:
		return Starting
	case s.HasInput:
		return Ready
	default:
		return ReadyNoInput
	}
}

// Indicator renders a level.
type Indicator interface {
	Set(Level)
	Off()
	Close() error
}

// Observer is notified after every transition.
type Observer func(from, to Level)

// Coordinator holds the current level and pushes changes to the indicator.
// Two overrides sit above Derive: a starting window held by the caller for
// the length of a (re)start, and stopping, which is terminal.
type Coordinator struct {
	mu        sync.Mutex
	level     Level
	window    bool
	stopping  bool
	indicator Indicator
	observers []Observer
	logger    *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithObserver registers fn to be called after every transition.
func WithObserver(fn Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, fn) }
}

// NewCoordinator starts at Off.
func NewCoordinator(ind Indicator, opts ...Option) *Coordinator {
	c := &Coordinator{level: Off, indicator: ind, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Level returns the current level.
func (c *Coordinator) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Update recomputes the level from health signals. It reports whether a
// transition fired.
func (c *Coordinator) Update(s Signals) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recomputeLocked(s)
}

// BeginStarting opens the starting window.
func (c *Coordinator) BeginStarting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = true
	return c.recomputeLocked(Signals{})
}

// EndStarting closes the starting window and recomputes from s.
func (c *Coordinator) EndStarting(s Signals) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = false
	return c.recomputeLocked(s)
}

// BeginStopping enters Stopping. No later update leaves it.
func (c *Coordinator) BeginStopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopping = true
	return c.recomputeLocked(Signals{})
}

func (c *Coordinator) recomputeLocked(s Signals) bool {
	next := Derive(s)
	switch {
	case c.stopping:
		next = Stopping
	case c.window:
		next = Starting
	}
	if next == c.level {
		return false
	}

	prev := c.level
	c.level = next
	c.logger.Info("status changed", zap.Stringer("from", prev), zap.Stringer("to", next))
	if c.indicator != nil {
		c.indicator.Set(next)
	}
	for _, fn := range c.observers {
		fn(prev, next)
	}
	return true
}
