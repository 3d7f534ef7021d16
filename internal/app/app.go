// Package app wires the engine supervisor, hotplug monitor, gesture
// detection and status indicator into the appliance's control loop.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/pianod/internal/engine"
	"github.com/nixlim/pianod/internal/events"
	"github.com/nixlim/pianod/internal/gesture"
	"github.com/nixlim/pianod/internal/hotplug"
	"github.com/nixlim/pianod/internal/metrics"
	"github.com/nixlim/pianod/internal/status"
)

// ErrShuttingDown is returned for commands submitted after shutdown began.
var ErrShuttingDown = errors.New("appliance is shutting down")

// Engine is the part of the engine supervisor the orchestrator drives.
type Engine interface {
	IsRunning() bool
	Starting() bool
	Start() error
	Stop()
	Restart() error
	SelectInstrument(d engine.Direction) (string, error)
	Current() (int, engine.Instrument)
	Catalog() []engine.Instrument
}

// Settings holds the orchestrator's timings.
type Settings struct {
	PollInterval   time.Duration // device registry polling
	HealthInterval time.Duration // engine liveness check
	ReconnectDelay time.Duration // wait after a restart before routing devices
	Debounce       time.Duration
	LongPress      time.Duration
	ResetHold      time.Duration
	PowerOff       bool // halt the machine on a shutdown command
}

// Deps are the collaborators the orchestrator is built from. Metrics and
// Power may be nil.
type Deps struct {
	Engine    Engine
	Registry  hotplug.Registry
	Indicator status.Indicator
	Hub       *events.Hub
	Metrics   *metrics.Metrics
	Power     Shutdowner
}

// App is the appliance's single control context. Create one with New and
// drive it with Run.
type App struct {
	settings Settings
	engine   Engine
	monitor  *hotplug.Monitor
	status   *status.Coordinator
	ind      status.Indicator
	hub      *events.Hub
	metrics  *metrics.Metrics
	power    Shutdowner
	logger   *zap.Logger

	gestures *gesture.Set
	debounce *gesture.Debouncer
	bindings Bindings

	// opMu serialises engine-affecting commands and the health check.
	opMu  sync.Mutex
	cmds  chan Command
	sleep func(ctx context.Context, d time.Duration)

	shutdownOnce sync.Once
	done         chan struct{}
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	clock    gesture.Clock
	sleep    func(ctx context.Context, d time.Duration)
	bindings Bindings
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used for gesture timing and debouncing.
func WithClock(c gesture.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSleep replaces the context-aware sleep used before reconnecting
// devices after a restart.
func WithSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(o *options) { o.sleep = fn }
}

// WithBindings replaces the gesture table.
func WithBindings(b Bindings) Option {
	return func(o *options) { o.bindings = b }
}

// New builds the orchestrator, its hotplug monitor and its status
// coordinator.
func New(settings Settings, deps Deps, opts ...Option) *App {
	o := options{
		logger:   zap.NewNop(),
		sleep:    sleepCtx,
		bindings: DefaultBindings(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		settings: settings,
		engine:   deps.Engine,
		ind:      deps.Indicator,
		hub:      deps.Hub,
		metrics:  deps.Metrics,
		power:    deps.Power,
		logger:   o.logger,
		gestures: gesture.NewSet(Buttons(settings.LongPress, settings.ResetHold), o.clock),
		debounce: gesture.NewDebouncer(settings.Debounce, o.clock),
		bindings: o.bindings,
		cmds:     make(chan Command, 16),
		sleep:    o.sleep,
		done:     make(chan struct{}),
	}
	a.status = status.NewCoordinator(deps.Indicator,
		status.WithLogger(o.logger.Named("status")),
		status.WithObserver(a.onStatus),
	)
	a.monitor = hotplug.New(deps.Registry, settings.PollInterval, a.HandleDeviceEvent,
		hotplug.WithLogger(o.logger.Named("hotplug")),
	)
	return a
}

// Run starts the engine and device monitoring, then serves commands and
// health checks until ctx is cancelled or a shutdown command completes.
// Cancellation tears everything down without powering off.
func (a *App) Run(ctx context.Context) error {
	a.startup(ctx)

	ticker := time.NewTicker(a.settings.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown(false)
			return nil
		case <-a.done:
			return nil
		case cmd := <-a.cmds:
			if err := a.Dispatch(ctx, cmd); err != nil {
				a.logger.Warn("command failed", zap.Stringer("command", cmd.Kind), zap.Error(err))
			}
		case <-ticker.C:
			a.checkHealth(ctx)
		}
	}
}

// Done is closed once shutdown has completed.
func (a *App) Done() <-chan struct{} {
	return a.done
}

func (a *App) startup(ctx context.Context) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.status.BeginStarting()
	if err := a.engine.Start(); err != nil {
		a.engineFailed("start_failed", err)
	} else {
		a.publish(events.TypeEngine, map[string]any{events.KeyState: "started"})
	}
	a.recordRunning()

	a.monitor.ConnectAll(ctx)
	a.monitor.Start(ctx)
	a.status.EndStarting(a.signals())
}

// Submit queues a command for the Run loop. It never blocks; when the queue
// is full the command is dropped.
func (a *App) Submit(cmd Command) error {
	select {
	case <-a.done:
		return ErrShuttingDown
	default:
	}
	select {
	case a.cmds <- cmd:
		return nil
	default:
		a.logger.Warn("command queue full, dropping", zap.Stringer("command", cmd.Kind))
		return errors.New("command queue full")
	}
}

// Dispatch executes cmd synchronously.
func (a *App) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CmdDeviceConnected, CmdDeviceDisconnected:
		// Device notifications arrive from inside ConnectAll, which may
		// run under opMu.
		a.deviceChanged(cmd)
		return nil
	}

	select {
	case <-a.done:
		return ErrShuttingDown
	default:
	}

	if cmd.Kind == CmdShutdown {
		a.shutdown(a.settings.PowerOff)
		return nil
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	switch cmd.Kind {
	case CmdRestart:
		return a.restart(ctx)
	case CmdNextInstrument:
		return a.selectInstrument(engine.Next, cmd.Kind)
	case CmdPrevInstrument:
		return a.selectInstrument(engine.Previous, cmd.Kind)
	case CmdResetInstrument:
		return a.selectInstrument(engine.Reset, cmd.Kind)
	case CmdSelectInstrument:
		return a.selectInstrument(engine.Absolute(cmd.Index), cmd.Kind)
	default:
		return errors.New("unknown command " + cmd.Kind.String())
	}
}

// HandleEdge feeds a button edge from a gesture source. Bound gestures are
// queued for the Run loop.
func (a *App) HandleEdge(e gesture.Edge) {
	if !a.debounce.Accept(e) {
		return
	}
	g, ok := a.gestures.Handle(e)
	if !ok {
		return
	}
	cmd, ok := a.bindings.Lookup(e.Button, g)
	if !ok {
		a.logger.Debug("unbound gesture", zap.String("button", e.Button), zap.Stringer("gesture", g))
		return
	}
	a.logger.Info("button gesture",
		zap.String("button", e.Button),
		zap.Stringer("gesture", g),
		zap.Stringer("command", cmd.Kind),
	)
	_ = a.Submit(cmd)
}

// HandleDeviceEvent converts a hotplug notification into a command.
func (a *App) HandleDeviceEvent(e hotplug.Event) {
	switch e.Type {
	case hotplug.Connected:
		a.deviceChanged(DeviceConnected(e.Name))
	case hotplug.Disconnected:
		a.deviceChanged(Command{Kind: CmdDeviceDisconnected})
	}
}

func (a *App) deviceChanged(cmd Command) {
	if cmd.Kind == CmdDeviceConnected {
		a.logger.Info("controller connected", zap.String("device", cmd.Device))
		a.publish(events.TypeMIDIConnected, map[string]any{events.KeyDevice: cmd.Device})
	} else {
		a.logger.Info("all controllers disconnected")
		a.publish(events.TypeMIDIDisconnected, nil)
	}
	if a.metrics != nil {
		a.metrics.SetDevicesConnected(len(a.monitor.Connected()))
	}
	a.status.Update(a.signals())
}

// restart must be called with opMu held.
func (a *App) restart(ctx context.Context) error {
	a.logger.Info("restarting engine")
	a.status.BeginStarting()
	if a.metrics != nil {
		a.metrics.IncRestarts()
	}

	err := a.engine.Restart()
	a.recordRunning()
	if err != nil {
		a.engineFailed("restart_failed", err)
		a.status.EndStarting(a.signals())
		return err
	}
	a.publish(events.TypeEngine, map[string]any{events.KeyState: "restarted"})

	// The engine registers its sequencer port shortly after it comes up.
	a.sleep(ctx, a.settings.ReconnectDelay)
	a.monitor.Reconnect(ctx)
	a.status.EndStarting(a.signals())
	return nil
}

func (a *App) checkHealth(ctx context.Context) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if a.engine.IsRunning() {
		a.status.Update(a.signals())
		return
	}
	a.logger.Warn("engine not running, restarting")
	a.publish(events.TypeEngine, map[string]any{events.KeyState: "crashed"})
	_ = a.restart(ctx)
}

// selectInstrument must be called with opMu held.
func (a *App) selectInstrument(d engine.Direction, kind CommandKind) error {
	name, err := a.engine.SelectInstrument(d)
	if err != nil {
		return err
	}
	idx, _ := a.engine.Current()
	if a.metrics != nil {
		a.metrics.IncInstrumentChanges(kind.String())
	}
	a.publish(events.TypeInstrument, map[string]any{
		events.KeyIndex:     idx,
		events.KeyName:      name,
		events.KeyDirection: kind.String(),
	})
	return nil
}

func (a *App) shutdown(powerOff bool) {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down", zap.Bool("power_off", powerOff))
		a.status.BeginStopping()

		sm := NewShutdownManager()
		sm.StopDevices = a.monitor.Stop
		sm.StopEngine = func() {
			a.opMu.Lock()
			defer a.opMu.Unlock()
			a.engine.Stop()
			a.recordRunning()
			a.publish(events.TypeEngine, map[string]any{events.KeyState: "stopped"})
		}
		if a.ind != nil {
			sm.ReleaseIndicator = func() error {
				a.ind.Off()
				return a.ind.Close()
			}
		}
		sm.Cleanup = func() {
			if a.hub != nil {
				a.hub.Close()
			}
		}
		if powerOff && a.power != nil {
			sm.PowerOff = a.power.PowerOff
		}

		if err := sm.Shutdown(); err != nil {
			a.logger.Error("shutdown incomplete", zap.Error(err))
		}
		close(a.done)
	})
}

// onStatus runs under the coordinator's lock.
func (a *App) onStatus(from, to status.Level) {
	if a.metrics != nil {
		a.metrics.SetStatusLevel(int(to))
	}
	a.publish(events.TypeStatus, map[string]any{
		events.KeyFrom:  from.String(),
		events.KeyLevel: to.String(),
	})
}

func (a *App) engineFailed(state string, err error) {
	a.logger.Error("engine failure", zap.String("state", state), zap.Error(err))
	if a.metrics != nil {
		a.metrics.IncStartFailures()
	}
	a.publish(events.TypeEngine, map[string]any{events.KeyState: state, events.KeyError: err.Error()})
}

func (a *App) recordRunning() {
	if a.metrics != nil {
		a.metrics.SetEngineRunning(a.engine.IsRunning())
	}
}

func (a *App) signals() status.Signals {
	return status.Signals{
		Running:  a.engine.IsRunning(),
		Starting: a.engine.Starting(),
		HasInput: a.monitor.HasAny(),
	}
}

func (a *App) publish(t events.Type, data map[string]any) {
	if a.hub != nil {
		a.hub.Publish(t, data)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
