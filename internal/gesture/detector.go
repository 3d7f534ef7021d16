// Package gesture turns debounced button edges into gestures.
package gesture

import (
	"fmt"
	"sync"
	"time"
)

// Gesture is a classified button action.
type Gesture int

const (
	// ShortPress is a hold released before the long-press threshold.
	ShortPress Gesture = iota
	// LongPress is a hold released at or after the long-press threshold.
	LongPress
	// Press is a plain tap on a button without hold semantics.
	Press
	// HoldReset is a tap-button held past its reset threshold.
	HoldReset
)

func (g Gesture) String() string {
	switch g {
	case ShortPress:
		return "short-press"
	case LongPress:
		return "long-press"
	case Press:
		return "press"
	case HoldReset:
		return "hold-reset"
	default:
		return fmt.Sprintf("gesture(%d)", int(g))
	}
}

// Kind selects how a button's edges are classified.
type Kind int

const (
	// KindHold classifies on release: ShortPress or LongPress.
	KindHold Kind = iota
	// KindTap classifies every press edge as Press; releases are ignored.
	KindTap
	// KindTapHold classifies on release: Press, or HoldReset when held past
	// the threshold.
	KindTapHold
)

// Button describes one logical button.
type Button struct {
	Name      string
	Kind      Kind
	Threshold time.Duration // long-press or reset-hold threshold
}

// Clock returns the current time. time.Now carries a monotonic reading, so
// differences between two calls are immune to wall-clock changes.
type Clock func() time.Time

// Detector tracks one button's press timestamp.
type Detector struct {
	mu        sync.Mutex
	button    Button
	clock     Clock
	pressedAt time.Time
	pressed   bool
}

// NewDetector creates a detector for b. A nil clock uses time.Now.
func NewDetector(b Button, clock Clock) *Detector {
	if clock == nil {
		clock = time.Now
	}
	return &Detector{button: b, clock: clock}
}

// Button returns the button this detector classifies.
func (d *Detector) Button() Button {
	return d.button
}

// OnPress handles a press edge. Only KindTap buttons classify here.
func (d *Detector) OnPress() (Gesture, bool) {
	if d.button.Kind == KindTap {
		return Press, true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pressedAt = d.clock()
	d.pressed = true
	return 0, false
}

// OnRelease handles a release edge. A release with no recorded press
// produces nothing.
func (d *Detector) OnRelease() (Gesture, bool) {
	if d.button.Kind == KindTap {
		return 0, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pressed {
		return 0, false
	}
	held := d.clock().Sub(d.pressedAt)
	d.pressed = false
	d.pressedAt = time.Time{}

	long := held >= d.button.Threshold
	switch d.button.Kind {
	case KindTapHold:
		if long {
			return HoldReset, true
		}
		return Press, true
	default:
		if long {
			return LongPress, true
		}
		return ShortPress, true
	}
}

// Set routes edges to per-button detectors.
type Set struct {
	detectors map[string]*Detector
}

// NewSet builds a detector for every button.
func NewSet(buttons []Button, clock Clock) *Set {
	s := &Set{detectors: make(map[string]*Detector, len(buttons))}
	for _, b := range buttons {
		s.detectors[b.Name] = NewDetector(b, clock)
	}
	return s
}

// Handle classifies an edge. Edges for unknown buttons are ignored.
func (s *Set) Handle(e Edge) (Gesture, bool) {
	d, ok := s.detectors[e.Button]
	if !ok {
		return 0, false
	}
	if e.Pressed {
		return d.OnPress()
	}
	return d.OnRelease()
}
