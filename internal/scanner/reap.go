package scanner

import (
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/pianod/internal/process"
)

// Signaller delivers a signal to a PID.
type Signaller func(pid int, sig process.SignalType) error

// Reaper terminates stale engine processes so a fresh engine can claim the
// audio and sequencer devices.
type Reaper struct {
	Scanner *Scanner
	Signal  Signaller
	Grace   time.Duration // wait between terminate and kill
	Logger  *zap.Logger
	Sleep   func(time.Duration)
}

// NewReaper returns a Reaper over /proc that signals real processes.
func NewReaper(grace time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{
		Scanner: New(),
		Signal:  process.SendSignal,
		Grace:   grace,
		Logger:  logger,
		Sleep:   time.Sleep,
	}
}

// Reap terminates every process named binary, then kills any that outlive
// the grace period. It returns the PIDs that were found.
func (r *Reaper) Reap(binary string) ([]int, error) {
	procs, err := r.Scanner.FindByName(binary)
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return nil, nil
	}

	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
		r.Logger.Warn("terminating stale engine",
			zap.Int("pid", p.PID),
			zap.Strings("args", p.Args),
		)
		if err := r.Signal(p.PID, process.SignalTerminate); err != nil && !process.IsNoSuchProcess(err) {
			r.Logger.Warn("terminate failed", zap.Int("pid", p.PID), zap.Error(err))
		}
	}

	r.Sleep(r.Grace)

	left, err := r.Scanner.FindByName(binary)
	if err != nil {
		return pids, err
	}
	for _, p := range left {
		r.Logger.Warn("killing stale engine", zap.Int("pid", p.PID))
		if err := r.Signal(p.PID, process.SignalKill); err != nil && !process.IsNoSuchProcess(err) {
			r.Logger.Warn("kill failed", zap.Int("pid", p.PID), zap.Error(err))
		}
	}
	return pids, nil
}
