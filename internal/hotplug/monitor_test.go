package hotplug

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nixlim/pianod/internal/registry"
)

type fakeRegistry struct {
	mu          sync.Mutex
	clients     []registry.Client
	engineID    string
	listErr     error
	refuse      map[string]bool
	routes      []string
	panicOnList bool
}

func (f *fakeRegistry) set(clients ...registry.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = clients
}

func (f *fakeRegistry) ListClients(ctx context.Context) ([]registry.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnList {
		panic("listing exploded")
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]registry.Client(nil), f.clients...), nil
}

func (f *fakeRegistry) FindEngineEndpoint(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engineID, f.engineID != "", nil
}

func (f *fakeRegistry) Route(ctx context.Context, src, dst string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[src] {
		return false, nil
	}
	f.routes = append(f.routes, src+"->"+dst)
	return true, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

var (
	devA = registry.Client{ID: "20", Name: "MPK mini 3"}
	devB = registry.Client{ID: "24", Name: "Keystation 49 MK3"}
)

func TestPollOnce_ConnectDisconnectSequence(t *testing.T) {
	reg := &fakeRegistry{engineID: "128"}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA)
	m.PollOnce(ctx)
	reg.set(devA, devB)
	m.PollOnce(ctx)
	reg.set()
	m.PollOnce(ctx)
	m.PollOnce(ctx)

	got := rec.snapshot()
	want := []Event{
		{Type: Connected, ID: "20", Name: "MPK mini 3"},
		{Type: Connected, ID: "24", Name: "Keystation 49 MK3"},
		{Type: Disconnected},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if m.HasAny() {
		t.Error("HasAny() should be false after all devices left")
	}
}

func TestPollOnce_PartialRemovalDoesNotFireDisconnected(t *testing.T) {
	reg := &fakeRegistry{engineID: "128"}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA, devB)
	m.PollOnce(ctx)
	reg.set(devB)
	m.PollOnce(ctx)

	for _, e := range rec.snapshot() {
		if e.Type == Disconnected {
			t.Fatal("Disconnected fired while a controller remained")
		}
	}
	if !m.HasAny() {
		t.Error("HasAny() should be true")
	}
	if names := m.Connected(); len(names) != 1 || names[0] != devB.Name {
		t.Errorf("Connected() = %v, want [%s]", names, devB.Name)
	}
}

func TestPollOnce_NoEngineEndpointDefersRouting(t *testing.T) {
	reg := &fakeRegistry{}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA)
	m.PollOnce(ctx)
	if len(rec.snapshot()) != 0 || m.HasAny() {
		t.Fatal("nothing should connect before the engine registers")
	}

	reg.mu.Lock()
	reg.engineID = "128"
	reg.mu.Unlock()
	m.PollOnce(ctx)

	if got := rec.snapshot(); len(got) != 1 || got[0].Name != devA.Name {
		t.Errorf("events = %+v, want one Connected for %s", got, devA.Name)
	}
}

func TestPollOnce_RefusedRouteRetriedNextPoll(t *testing.T) {
	reg := &fakeRegistry{engineID: "128", refuse: map[string]bool{"20": true}}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA)
	m.PollOnce(ctx)
	if m.HasAny() {
		t.Fatal("refused route should not count as connected")
	}

	reg.mu.Lock()
	reg.refuse = nil
	reg.mu.Unlock()
	m.PollOnce(ctx)
	if !m.HasAny() {
		t.Error("route should succeed on the next poll")
	}
}

func TestPollOnce_ListErrorKeepsConnectedSet(t *testing.T) {
	reg := &fakeRegistry{engineID: "128"}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA)
	m.PollOnce(ctx)

	reg.mu.Lock()
	reg.listErr = errors.New("aconnect timed out")
	reg.mu.Unlock()
	m.PollOnce(ctx)

	if !m.HasAny() {
		t.Error("a failed poll should not drop connected controllers")
	}
	if got := rec.snapshot(); len(got) != 1 {
		t.Errorf("events = %+v, want only the initial Connected", got)
	}
}

func TestConnectAll(t *testing.T) {
	reg := &fakeRegistry{engineID: "128"}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA, devB)
	m.ConnectAll(ctx)
	m.ConnectAll(ctx)

	if got := rec.snapshot(); len(got) != 2 {
		t.Errorf("events = %+v, want 2 Connected", got)
	}
	if len(reg.routes) != 2 || reg.routes[0] != "20->128" {
		t.Errorf("routes = %v", reg.routes)
	}
}

func TestReconnect_RoutesKnownControllersAgain(t *testing.T) {
	reg := &fakeRegistry{engineID: "128"}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)
	ctx := context.Background()

	reg.set(devA)
	m.ConnectAll(ctx)
	reg.set(devA, devB)
	m.Reconnect(ctx)

	if got := rec.snapshot(); len(got) != 2 {
		t.Errorf("events = %+v, want Connected for A then B only", got)
	}
	if len(reg.routes) != 3 {
		t.Errorf("routes = %v, want A, A again, B", reg.routes)
	}
}

func TestConnectAll_NoEngineIsNotAnError(t *testing.T) {
	reg := &fakeRegistry{}
	rec := &recorder{}
	m := New(reg, time.Second, rec.handle)

	reg.set(devA)
	m.ConnectAll(context.Background())

	if len(rec.snapshot()) != 0 || len(reg.routes) != 0 {
		t.Error("ConnectAll should do nothing without an engine endpoint")
	}
}

func TestStartStop_PollsInBackground(t *testing.T) {
	reg := &fakeRegistry{engineID: "128"}
	rec := &recorder{}
	m := New(reg, 5*time.Millisecond, rec.handle, WithStopTimeout(time.Second))

	reg.set(devA)
	m.Start(context.Background())
	m.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for !m.HasAny() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !m.HasAny() {
		t.Fatal("background loop never connected the controller")
	}

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	m.Stop()
}

func TestLoop_SurvivesPanickingPoll(t *testing.T) {
	reg := &fakeRegistry{engineID: "128", panicOnList: true}
	rec := &recorder{}
	m := New(reg, 5*time.Millisecond, rec.handle)

	m.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	reg.mu.Lock()
	reg.panicOnList = false
	reg.clients = []registry.Client{devA}
	reg.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for !m.HasAny() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	if !m.HasAny() {
		t.Error("loop should keep polling after a panic")
	}
}
