package gesture

import (
	"testing"
	"time"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestDetector_ShortAndLongPress(t *testing.T) {
	tests := []struct {
		held time.Duration
		want Gesture
	}{
		{2900 * time.Millisecond, ShortPress},
		{3000 * time.Millisecond, LongPress},
		{3100 * time.Millisecond, LongPress},
		{0, ShortPress},
	}

	for _, tt := range tests {
		clock := newFakeClock()
		d := NewDetector(Button{Name: "restart", Kind: KindHold, Threshold: 3 * time.Second}, clock.Now)

		if _, ok := d.OnPress(); ok {
			t.Fatalf("held=%v: press should not classify", tt.held)
		}
		clock.Advance(tt.held)
		got, ok := d.OnRelease()
		if !ok {
			t.Fatalf("held=%v: release produced no gesture", tt.held)
		}
		if got != tt.want {
			t.Errorf("held=%v: got %v, want %v", tt.held, got, tt.want)
		}
	}
}

func TestDetector_ReleaseWithoutPress(t *testing.T) {
	d := NewDetector(Button{Name: "restart", Kind: KindHold, Threshold: 3 * time.Second}, newFakeClock().Now)
	if g, ok := d.OnRelease(); ok {
		t.Errorf("spurious release classified as %v", g)
	}
}

func TestDetector_ReleaseClearsPress(t *testing.T) {
	clock := newFakeClock()
	d := NewDetector(Button{Name: "restart", Kind: KindHold, Threshold: 3 * time.Second}, clock.Now)

	d.OnPress()
	clock.Advance(time.Second)
	if _, ok := d.OnRelease(); !ok {
		t.Fatal("first release should classify")
	}
	clock.Advance(5 * time.Second)
	if g, ok := d.OnRelease(); ok {
		t.Errorf("second release classified as %v", g)
	}
}

func TestDetector_TapClassifiesOnPress(t *testing.T) {
	d := NewDetector(Button{Name: "prev", Kind: KindTap}, newFakeClock().Now)

	g, ok := d.OnPress()
	if !ok || g != Press {
		t.Errorf("OnPress = %v, %v; want Press, true", g, ok)
	}
	if _, ok := d.OnRelease(); ok {
		t.Error("tap release should not classify")
	}
}

func TestDetector_TapHold(t *testing.T) {
	clock := newFakeClock()
	d := NewDetector(Button{Name: "next", Kind: KindTapHold, Threshold: time.Second}, clock.Now)

	d.OnPress()
	clock.Advance(200 * time.Millisecond)
	if g, ok := d.OnRelease(); !ok || g != Press {
		t.Errorf("quick release = %v, %v; want Press", g, ok)
	}

	d.OnPress()
	clock.Advance(1500 * time.Millisecond)
	if g, ok := d.OnRelease(); !ok || g != HoldReset {
		t.Errorf("held release = %v, %v; want HoldReset", g, ok)
	}
}

func TestSet_RoutesByButton(t *testing.T) {
	clock := newFakeClock()
	s := NewSet([]Button{
		{Name: "restart", Kind: KindHold, Threshold: 3 * time.Second},
		{Name: "prev", Kind: KindTap},
	}, clock.Now)

	if g, ok := s.Handle(Edge{Button: "prev", Pressed: true}); !ok || g != Press {
		t.Errorf("prev press = %v, %v", g, ok)
	}
	s.Handle(Edge{Button: "restart", Pressed: true})
	clock.Advance(4 * time.Second)
	if g, ok := s.Handle(Edge{Button: "restart"}); !ok || g != LongPress {
		t.Errorf("restart release = %v, %v; want LongPress", g, ok)
	}
	if _, ok := s.Handle(Edge{Button: "unknown", Pressed: true}); ok {
		t.Error("unknown button should be ignored")
	}
}

func TestDebouncer(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(50*time.Millisecond, clock.Now)

	if !d.Accept(Edge{Button: "next", Pressed: true}) {
		t.Fatal("first edge should pass")
	}
	clock.Advance(10 * time.Millisecond)
	if d.Accept(Edge{Button: "next"}) {
		t.Error("bounce within window should be dropped")
	}
	if !d.Accept(Edge{Button: "prev", Pressed: true}) {
		t.Error("other buttons are debounced independently")
	}
	clock.Advance(60 * time.Millisecond)
	if !d.Accept(Edge{Button: "next"}) {
		t.Error("edge after window should pass")
	}
}

func TestDebouncer_Wrap(t *testing.T) {
	clock := newFakeClock()
	var got []Edge
	h := NewDebouncer(50*time.Millisecond, clock.Now).Wrap(func(e Edge) { got = append(got, e) })

	h(Edge{Button: "next", Pressed: true})
	h(Edge{Button: "next"})
	clock.Advance(time.Second)
	h(Edge{Button: "next"})

	if len(got) != 2 {
		t.Errorf("forwarded %d edges, want 2", len(got))
	}
}

func TestGestureString(t *testing.T) {
	if LongPress.String() != "long-press" || HoldReset.String() != "hold-reset" {
		t.Error("unexpected gesture names")
	}
}
