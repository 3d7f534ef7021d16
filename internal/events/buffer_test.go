package events

import (
	"fmt"
	"testing"
	"time"
)

func makeEvent(t Type, id string) Event {
	return Event{
		ID:        id,
		Type:      t,
		Timestamp: time.Now(),
	}
}

func ids(evs []Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.ID
	}
	return out
}

func TestHistory_Eviction(t *testing.T) {
	h := NewHistory(3)

	h.Add(makeEvent(TypeInstrument, "event-1"))
	h.Add(makeEvent(TypeInstrument, "event-2"))
	h.Add(makeEvent(TypeInstrument, "event-3"))
	if h.Len() != 3 {
		t.Fatalf("expected len=3, got %d", h.Len())
	}

	// event-1 is the oldest and goes first.
	h.Add(makeEvent(TypeInstrument, "event-4"))
	if h.Len() != 3 {
		t.Fatalf("expected len=3 after eviction, got %d", h.Len())
	}

	got := ids(h.Tail(0))
	want := []string{"event-2", "event-3", "event-4"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestHistory_SizeOne(t *testing.T) {
	h := NewHistory(0)
	if h.Size() != 1 {
		t.Fatalf("expected size=1 for non-positive size, got %d", h.Size())
	}

	h.Add(makeEvent(TypeStatus, "first"))
	h.Add(makeEvent(TypeStatus, "second"))
	if h.Len() != 1 {
		t.Fatalf("expected len=1, got %d", h.Len())
	}
	if all := h.Tail(0); all[0].ID != "second" {
		t.Errorf("expected 'second', got %q", all[0].ID)
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(10)

	if all := h.Tail(5); all != nil {
		t.Errorf("expected nil for empty history, got %v", all)
	}
	if _, ok := h.Last(TypeStatus); ok {
		t.Error("expected no last event in empty history")
	}
}

func TestHistory_Tail(t *testing.T) {
	h := NewHistory(5)
	for i := 0; i < 7; i++ {
		h.Add(makeEvent(TypeInstrument, fmt.Sprintf("event-%d", i)))
	}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"event-5", "event-6"}},
		{5, []string{"event-2", "event-3", "event-4", "event-5", "event-6"}},
		{50, []string{"event-2", "event-3", "event-4", "event-5", "event-6"}},
	}
	for _, tt := range tests {
		got := ids(h.Tail(tt.n))
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("Tail(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestHistory_Last(t *testing.T) {
	h := NewHistory(3)

	h.Add(makeEvent(TypeInstrument, "inst-1"))
	h.Add(makeEvent(TypeMIDIConnected, "midi-1"))
	h.Add(makeEvent(TypeInstrument, "inst-2"))
	h.Add(makeEvent(TypeStatus, "status-1"))

	if e, ok := h.Last(TypeInstrument); !ok || e.ID != "inst-2" {
		t.Errorf("Last(instrument) = %q, %v", e.ID, ok)
	}
	if e, ok := h.Last(TypeMIDIConnected); !ok || e.ID != "midi-1" {
		t.Errorf("Last(midi_connected) = %q, %v", e.ID, ok)
	}
	if _, ok := h.Last(TypeEngine); ok {
		t.Error("expected no engine event")
	}
}

func TestHistory_WrapAround(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 10; i++ {
		h.Add(makeEvent(TypeInstrument, fmt.Sprintf("event-%d", i)))
	}

	got := ids(h.Tail(0))
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []string{"event-7", "event-8", "event-9"} {
		if got[i] != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got[i])
		}
	}
}
