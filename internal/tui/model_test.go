package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/pianod/internal/app"
	"github.com/nixlim/pianod/internal/events"
	"github.com/nixlim/pianod/internal/gesture"
	"github.com/nixlim/pianod/internal/status"
)

type fakeState struct {
	snap   app.Snapshot
	recent []events.Event
}

func (f *fakeState) Snapshot() app.Snapshot { return f.snap }

func (f *fakeState) Recent(limit int) []events.Event {
	if len(f.recent) > limit {
		return f.recent[len(f.recent)-limit:]
	}
	return f.recent
}

type edgeLog struct {
	mu    sync.Mutex
	edges []gesture.Edge
}

func (l *edgeLog) handle(e gesture.Edge) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edges = append(l.edges, e)
}

func (l *edgeLog) list() []gesture.Edge {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]gesture.Edge(nil), l.edges...)
}

// attach runs the console as a source until the test ends.
func attach(t *testing.T, c *Console) *edgeLog {
	t.Helper()
	log := &edgeLog{}
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		close(started)
		_ = c.Run(ctx, log.handle)
	}()
	<-started
	t.Cleanup(cancel)

	// Run installs the handler asynchronously.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		ready := c.handler != nil
		c.mu.Unlock()
		if ready {
			return log
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("console handler not installed")
	return nil
}

func keyMsg(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestModel_TapEmitsPressThenRelease(t *testing.T) {
	c := NewConsole()
	log := attach(t, c)
	m := NewModel(c)

	updated, cmd := m.Update(keyMsg("n"))
	if cmd == nil {
		t.Fatal("tap should schedule a release")
	}
	edges := log.list()
	if len(edges) != 1 || edges[0] != (gesture.Edge{Button: app.ButtonNext, Pressed: true}) {
		t.Fatalf("edges after key = %v", edges)
	}

	// A repeat while held is ignored.
	updated, cmd = updated.Update(keyMsg("n"))
	if cmd != nil || len(log.list()) != 1 {
		t.Error("key repeat while held should be ignored")
	}

	updated.Update(releaseMsg{button: app.ButtonNext})
	edges = log.list()
	if len(edges) != 2 || edges[1].Pressed {
		t.Fatalf("edges after release = %v", edges)
	}
}

func TestModel_HoldKeys(t *testing.T) {
	c := NewConsole()
	log := attach(t, c)
	m := NewModel(c, WithTiming(DefaultTiming(3*time.Second, time.Second)))

	m.Update(keyMsg("R"))
	m.Update(keyMsg("N"))
	m.Update(keyMsg("p"))

	edges := log.list()
	want := []string{app.ButtonRestart, app.ButtonNext, app.ButtonPrev}
	if len(edges) != len(want) {
		t.Fatalf("edges = %v", edges)
	}
	for i, b := range want {
		if edges[i].Button != b || !edges[i].Pressed {
			t.Errorf("edge %d = %+v, want press on %s", i, edges[i], b)
		}
	}
}

func TestDefaultTiming(t *testing.T) {
	tm := DefaultTiming(3*time.Second, time.Second)
	if tm.LongPress <= 3*time.Second || tm.ResetHold <= time.Second {
		t.Errorf("holds must exceed thresholds: %+v", tm)
	}
	if tm.Tap <= 50*time.Millisecond || tm.Tap >= time.Second {
		t.Errorf("tap must clear the debounce window and stay short: %v", tm.Tap)
	}
}

func TestModel_Quit(t *testing.T) {
	quit := false
	m := NewModel(NewConsole(), WithOnQuit(func() { quit = true }))

	updated, cmd := m.Update(keyMsg("q"))
	if cmd == nil || !quit {
		t.Fatal("q should quit and notify")
	}
	if !strings.Contains(updated.View(), "closed") {
		t.Errorf("view after quit = %q", updated.View())
	}
}

func TestModel_View(t *testing.T) {
	c := NewConsole()
	c.Set(status.Ready)
	state := &fakeState{
		snap: app.Snapshot{
			Instrument: "Clavinet",
			Index:      1,
			Catalog:    make([]app.CatalogEntry, 3),
			Running:    true,
			HasInput:   true,
			Devices:    []string{"Keystation 49"},
			Status:     "READY",
		},
		recent: []events.Event{{
			Type:      events.TypeInstrument,
			Data:      map[string]any{events.KeyName: "Clavinet", events.KeyIndex: 1},
			Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
	m := NewModel(c, WithStateProvider(state))

	view := m.View()
	for _, want := range []string{"READY", "Clavinet", "(2/3)", "running", "Keystation 49", "instrument Clavinet"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_TickRefreshes(t *testing.T) {
	state := &fakeState{}
	m := NewModel(NewConsole(), WithStateProvider(state))

	state.snap.Instrument = "Rock Organ"
	updated, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should reschedule itself")
	}
	if !updated.(Model).fetching {
		t.Fatal("tick should start a state fetch")
	}

	// A second tick while the fetch is outstanding does not start another.
	again, _ := updated.Update(tickMsg(time.Now()))
	if !again.(Model).fetching {
		t.Error("fetch flag lost on overlapping tick")
	}

	msg := updated.(Model).fetchCmd()()
	done, _ := again.Update(msg)
	if done.(Model).fetching {
		t.Error("state message should clear the fetch flag")
	}
	if !strings.Contains(done.View(), "Rock Organ") {
		t.Error("state message should refresh the snapshot")
	}
}

func TestLampLit(t *testing.T) {
	base := time.Unix(0, 0)
	if !lampLit(status.PatternFor(status.Ready), base) {
		t.Error("solid lamp should be lit")
	}
	if lampLit(status.PatternFor(status.Off), base) {
		t.Error("off lamp should be dark")
	}

	p := status.PatternFor(status.Error) // 800ms on, 200ms off
	if !lampLit(p, base.Add(100*time.Millisecond)) {
		t.Error("error lamp should be lit early in its period")
	}
	if lampLit(p, base.Add(900*time.Millisecond)) {
		t.Error("error lamp should be dark late in its period")
	}
}

func TestConsole_Indicator(t *testing.T) {
	c := NewConsole()
	if l, lit := c.Level(); l != status.Off || lit {
		t.Errorf("new console = %v lit=%v", l, lit)
	}

	c.Set(status.Starting)
	if l, lit := c.Level(); l != status.Starting || !lit {
		t.Errorf("after Set = %v lit=%v", l, lit)
	}

	c.Off()
	if _, lit := c.Level(); lit {
		t.Error("Off should darken the lamp")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	c.Set(status.Error)
	if l, _ := c.Level(); l == status.Error {
		t.Error("Set after Close should be ignored")
	}
}

func TestConsole_EmitWithoutSource(t *testing.T) {
	c := NewConsole()
	c.emit(gesture.Edge{Button: app.ButtonPrev, Pressed: true})
}
