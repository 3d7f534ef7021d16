// Package process launches and signals the supervised engine process.
// Engine processes run in their own process group so that terminate and
// kill reach any helpers the engine forks.
package process

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// SignalType represents the type of signal to send to a process.
type SignalType int

const (
	// SignalTerminate sends SIGTERM for graceful termination.
	SignalTerminate SignalType = iota
	// SignalKill sends SIGKILL to terminate a process unconditionally.
	SignalKill
)

// errNoSuchProcess is returned when the target process does not exist.
var errNoSuchProcess = errors.New("no such process")

// SendSignal sends the specified signal to the process group of the given PID.
// It returns errNoSuchProcess if the process has already exited (ESRCH).
// The group is signalled first; if that fails because the process is not a
// group leader, the single PID is signalled instead.
func SendSignal(pid int, sig SignalType) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	sysSig, ok := toUnixSignal(sig)
	if !ok {
		return fmt.Errorf("unknown signal type: %d", sig)
	}

	pgErr := unix.Kill(-pid, sysSig)
	if pgErr == nil {
		return nil
	}

	if errors.Is(pgErr, unix.ESRCH) || errors.Is(pgErr, unix.EPERM) {
		pidErr := unix.Kill(pid, sysSig)
		if pidErr == nil {
			return nil
		}
		if isProcessGone(pidErr) {
			return errNoSuchProcess
		}
		return fmt.Errorf("sending signal to PID %d: %w", pid, pidErr)
	}

	return fmt.Errorf("sending signal to process group %d: %w", pid, pgErr)
}

// IsNoSuchProcess returns true if the error indicates the process does not exist.
func IsNoSuchProcess(err error) bool {
	return errors.Is(err, errNoSuchProcess)
}

func toUnixSignal(sig SignalType) (unix.Signal, bool) {
	switch sig {
	case SignalTerminate:
		return unix.SIGTERM, true
	case SignalKill:
		return unix.SIGKILL, true
	default:
		return 0, false
	}
}

// isProcessGone returns true if the error indicates the process does not exist.
func isProcessGone(err error) bool {
	if err == nil {
		return false
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.ESRCH
	}
	return strings.Contains(err.Error(), "process already finished") ||
		strings.Contains(err.Error(), "no such process")
}
