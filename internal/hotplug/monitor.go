// Package hotplug detects MIDI controllers being plugged in and removed by
// polling the device registry, and routes new controllers to the engine.
package hotplug

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/pianod/internal/registry"
)

// Registry is the subset of the device registry the monitor needs.
type Registry interface {
	ListClients(ctx context.Context) ([]registry.Client, error)
	FindEngineEndpoint(ctx context.Context) (string, bool, error)
	Route(ctx context.Context, src, dst string) (bool, error)
}

// EventType distinguishes monitor notifications.
type EventType int

const (
	// Connected fires once per controller routed to the engine.
	Connected EventType = iota
	// Disconnected fires when the last connected controller goes away.
	Disconnected
)

// Event is delivered to the monitor's handler.
type Event struct {
	Type EventType
	ID   string
	Name string // empty for Disconnected
}

// Handler receives monitor events. It is called from the polling goroutine
// (or the ConnectAll caller) and must not block for long.
type Handler func(Event)

// Monitor owns the set of controller ids currently routed to the engine.
type Monitor struct {
	reg      Registry
	handler  Handler
	interval time.Duration
	stopWait time.Duration
	logger   *zap.Logger

	// pollMu serialises reconciliation passes; mu guards the set only, so
	// HasAny stays cheap while a pass is talking to the registry.
	pollMu    sync.Mutex
	mu        sync.RWMutex
	connected map[string]string // id -> display name

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithStopTimeout bounds how long Stop waits for the loop to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.stopWait = d }
}

// New creates a monitor polling reg every interval.
func New(reg Registry, interval time.Duration, handler Handler, opts ...Option) *Monitor {
	m := &Monitor{
		reg:       reg,
		handler:   handler,
		interval:  interval,
		stopWait:  5 * time.Second,
		logger:    zap.NewNop(),
		connected: make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// HasAny reports whether at least one controller is connected.
func (m *Monitor) HasAny() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connected) > 0
}

// Connected returns the display names of connected controllers, sorted.
func (m *Monitor) Connected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.connected))
	for _, name := range m.connected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConnectAll routes every listed controller that is not yet connected. A
// missing engine endpoint is expected while the engine boots and is only
// logged.
func (m *Monitor) ConnectAll(ctx context.Context) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	dst, ok, err := m.reg.FindEngineEndpoint(ctx)
	if err != nil {
		m.logger.Warn("cannot resolve engine endpoint", zap.Error(err))
		return
	}
	if !ok {
		m.logger.Warn("engine not registered yet, controllers not routed")
		return
	}

	clients, err := m.reg.ListClients(ctx)
	if err != nil {
		m.logger.Warn("cannot list controllers", zap.Error(err))
		return
	}
	m.routeNew(ctx, clients, dst, nil, false)
}

// Reconnect routes every listed controller to the engine, including ones
// already connected; a restarted engine comes up without routes. Connected
// fires only for controllers that were not known.
func (m *Monitor) Reconnect(ctx context.Context) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	dst, ok, err := m.reg.FindEngineEndpoint(ctx)
	if err != nil {
		m.logger.Warn("cannot resolve engine endpoint", zap.Error(err))
		return
	}
	if !ok {
		m.logger.Warn("engine not registered yet, controllers not rerouted")
		return
	}

	clients, err := m.reg.ListClients(ctx)
	if err != nil {
		m.logger.Warn("cannot list controllers", zap.Error(err))
		return
	}
	m.routeNew(ctx, clients, dst, nil, true)
}

// PollOnce runs one reconciliation pass: routes new controllers and drops
// removed ones. Disconnected fires only when the set becomes empty.
func (m *Monitor) PollOnce(ctx context.Context) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	clients, err := m.reg.ListClients(ctx)
	if err != nil {
		// Treat a failed listing as a missed poll, not as every device leaving.
		m.logger.Warn("controller poll failed", zap.Error(err))
		return
	}

	current := make(map[string]bool, len(clients))
	for _, c := range clients {
		current[c.ID] = true
	}

	m.mu.RLock()
	newIDs := make(map[string]bool)
	for id := range current {
		if _, ok := m.connected[id]; !ok {
			newIDs[id] = true
		}
	}
	m.mu.RUnlock()

	if len(newIDs) > 0 {
		dst, ok, err := m.reg.FindEngineEndpoint(ctx)
		switch {
		case err != nil:
			m.logger.Warn("cannot resolve engine endpoint", zap.Error(err))
		case !ok:
			m.logger.Debug("engine not registered, new controllers wait for next poll")
		default:
			m.routeNew(ctx, clients, dst, newIDs, false)
		}
	}

	m.mu.Lock()
	var removed []string
	for id, name := range m.connected {
		if !current[id] {
			removed = append(removed, name)
			delete(m.connected, id)
		}
	}
	empty := len(m.connected) == 0
	m.mu.Unlock()

	if len(removed) > 0 {
		sort.Strings(removed)
		m.logger.Info("controllers removed", zap.Strings("devices", removed))
		if empty {
			m.emit(Event{Type: Disconnected})
		}
	}
}

// routeNew routes clients (restricted to only, when non-nil) that are not in
// the connected set, firing Connected for each success. With reroute, known
// clients are routed again without an event. Caller holds pollMu.
func (m *Monitor) routeNew(ctx context.Context, clients []registry.Client, dst string, only map[string]bool, reroute bool) {
	for _, c := range clients {
		if only != nil && !only[c.ID] {
			continue
		}
		m.mu.RLock()
		_, known := m.connected[c.ID]
		m.mu.RUnlock()
		if known && !reroute {
			continue
		}

		ok, err := m.reg.Route(ctx, c.ID, dst)
		if err != nil {
			m.logger.Warn("routing controller failed", zap.String("device", c.Name), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		if known {
			m.logger.Debug("controller rerouted", zap.String("device", c.Name), zap.String("id", c.ID))
			continue
		}

		m.mu.Lock()
		m.connected[c.ID] = c.Name
		m.mu.Unlock()

		m.logger.Info("controller connected", zap.String("device", c.Name), zap.String("id", c.ID))
		m.emit(Event{Type: Connected, ID: c.ID, Name: c.Name})
	}
}

func (m *Monitor) emit(e Event) {
	if m.handler != nil {
		m.handler(e)
	}
}

// Start launches the polling loop. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
	m.logger.Info("controller monitor started", zap.Duration("interval", m.interval))
}

// Stop signals the loop to exit and waits up to the stop timeout.
func (m *Monitor) Stop() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	t := time.NewTimer(m.stopWait)
	defer t.Stop()
	select {
	case <-done:
		m.logger.Info("controller monitor stopped")
	case <-t.C:
		m.logger.Warn("controller monitor did not stop in time", zap.Duration("timeout", m.stopWait))
	}
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.safePoll(ctx); err != nil {
				m.logger.Error("controller poll crashed", zap.Error(err))
			}
		}
	}
}

// safePoll keeps one bad iteration from ending the loop.
func (m *Monitor) safePoll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poll: %v", r)
		}
	}()
	m.PollOnce(ctx)
	return nil
}
