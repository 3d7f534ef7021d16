// Package engine supervises the synthesis engine child process and owns the
// instrument selection cursor.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/pianod/internal/process"
)

// Supervisor owns at most one engine process. All methods are safe for
// concurrent use; a single mutex serialises them.
type Supervisor struct {
	mu       sync.Mutex
	cfg      Config
	catalog  []Instrument
	host     process.Host
	proc     process.Handle
	current  int
	starting atomic.Bool

	sleep  func(time.Duration)
	exists func(path string) bool
	logger *zap.Logger
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithSleep replaces time.Sleep for the settle and restart delays.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Supervisor) { s.sleep = fn }
}

// NewSupervisor creates a stopped supervisor. The catalog must be non-empty;
// an out-of-range default instrument falls back to index 0.
func NewSupervisor(cfg Config, catalog []Instrument, host process.Host, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:     cfg,
		catalog: append([]Instrument(nil), catalog...),
		host:    host,
		sleep:   time.Sleep,
		exists:  fileExists,
		logger:  zap.NewNop(),
	}
	if cfg.DefaultInstrument >= 0 && cfg.DefaultInstrument < len(catalog) {
		s.current = cfg.DefaultInstrument
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IsRunning reports whether an engine process is present and has not exited.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

// Starting reports whether a start attempt is in its settle window. It does
// not wait for the supervisor lock.
func (s *Supervisor) Starting() bool {
	return s.starting.Load()
}

func (s *Supervisor) runningLocked() bool {
	return s.proc != nil && s.proc.Alive()
}

// Start launches the engine. It returns nil immediately if the engine is
// already running. Failures leave the supervisor stopped and usable.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Supervisor) startLocked() error {
	if s.runningLocked() {
		return nil
	}
	if s.proc != nil {
		s.logger.Warn("engine process found dead, releasing handle", zap.Int("pid", s.proc.PID()))
		s.proc = nil
	}

	soundFont, err := s.resolveSoundFont()
	if err != nil {
		s.logger.Error("cannot start engine", zap.Error(err))
		return err
	}

	args := append(append([]string(nil), s.cfg.Args...), soundFont)
	s.logger.Info("starting engine", zap.String("command", s.cfg.Command), zap.Strings("args", args))

	h, err := s.host.Launch(s.cfg.Command, args)
	if err != nil {
		s.logger.Error("engine launch failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEngineStartFailed, err)
	}

	s.starting.Store(true)
	s.sleep(s.cfg.SettleDelay)
	s.starting.Store(false)

	if !h.Alive() {
		startErr := &StartError{PID: h.PID(), Diagnostics: h.Diagnostics()}
		s.logger.Error("engine exited immediately",
			zap.Int("pid", startErr.PID),
			zap.String("diagnostics", startErr.Diagnostics),
		)
		return startErr
	}

	s.proc = h
	s.logger.Info("engine started", zap.Int("pid", h.PID()))
	s.applyLocked()
	return nil
}

func (s *Supervisor) resolveSoundFont() (string, error) {
	if s.cfg.SoundFont != "" && s.exists(s.cfg.SoundFont) {
		return s.cfg.SoundFont, nil
	}
	if s.cfg.SoundFontFallback != "" && s.exists(s.cfg.SoundFontFallback) {
		s.logger.Warn("primary sound bank not found, using fallback",
			zap.String("primary", s.cfg.SoundFont),
			zap.String("fallback", s.cfg.SoundFontFallback),
		)
		return s.cfg.SoundFontFallback, nil
	}
	return "", fmt.Errorf("%w: tried %q and %q", ErrResourceMissing, s.cfg.SoundFont, s.cfg.SoundFontFallback)
}

// Stop shuts the engine down: quit command, then SIGTERM, then SIGKILL,
// each step bounded by its timeout. The handle is always released.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	h := s.proc
	if h == nil {
		return
	}
	defer func() { s.proc = nil }()

	pid := h.PID()
	s.logger.Info("stopping engine", zap.Int("pid", pid))

	s.sendLocked("quit")
	if h.Wait(s.cfg.QuitTimeout) {
		s.logger.Info("engine stopped", zap.Int("pid", pid))
		return
	}

	s.logger.Warn("engine ignored quit, terminating", zap.Int("pid", pid), zap.Duration("waited", s.cfg.QuitTimeout))
	if err := h.Terminate(); err != nil {
		s.logger.Warn("terminate failed", zap.Int("pid", pid), zap.Error(err))
	}
	if h.Wait(s.cfg.TerminateTimeout) {
		s.logger.Info("engine terminated", zap.Int("pid", pid))
		return
	}

	s.logger.Warn("engine ignored SIGTERM, killing", zap.Int("pid", pid))
	if err := h.Kill(); err != nil {
		s.logger.Error("kill failed", zap.Int("pid", pid), zap.Error(err))
	}
}

// Restart stops the engine, pauses briefly and starts it again.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("restarting engine")
	s.stopLocked()
	s.sleep(s.cfg.RestartDelay)
	return s.startLocked()
}

// SelectInstrument moves the cursor and re-applies the selection on every
// configured channel. An out-of-range Absolute index returns ErrInvalidIndex
// and leaves the cursor untouched.
func (s *Supervisor) SelectInstrument(d Direction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.catalog)
	switch d.kind {
	case dirNext:
		s.current = wrap(s.current+1, n)
	case dirPrevious:
		s.current = wrap(s.current-1, n)
	case dirReset:
		s.current = 0
	case dirAbsolute:
		if d.index < 0 || d.index >= n {
			return "", fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, d.index, n)
		}
		s.current = d.index
	}

	return s.applyLocked(), nil
}

// Current returns the cursor and the selected instrument.
func (s *Supervisor) Current() (int, Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.catalog[s.current]
}

// Catalog returns a copy of the instrument catalog.
func (s *Supervisor) Catalog() []Instrument {
	return append([]Instrument(nil), s.catalog...)
}

func (s *Supervisor) applyLocked() string {
	inst := s.catalog[s.current]
	s.logger.Info("instrument selected",
		zap.String("instrument", inst.Name),
		zap.Int("program", inst.Program),
		zap.Ints("channels", s.cfg.Channels),
	)
	for _, ch := range s.cfg.Channels {
		s.sendLocked(programChangeCommand(ch, inst.Program))
	}
	return inst.Name
}

// sendLocked writes one command line to the engine. Failures are logged and
// swallowed.
func (s *Supervisor) sendLocked(command string) {
	if !s.runningLocked() {
		s.logger.Warn("cannot send command, engine not running", zap.String("command", command))
		return
	}
	if _, err := io.WriteString(s.proc.Stdin(), command+"\n"); err != nil {
		s.logger.Warn("engine command dropped",
			zap.String("command", command),
			zap.Error(errors.Join(ErrCommandSendFailed, err)),
		)
	}
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
