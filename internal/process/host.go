package process

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// maxDiagnostics caps how much of the engine's stderr is retained.
const maxDiagnostics = 64 * 1024

// Handle is a launched external process.
type Handle interface {
	// PID returns the operating-system process ID.
	PID() int

	// Stdin is the write side of the process's command channel.
	Stdin() io.Writer

	// Diagnostics returns everything captured from the diagnostic stream so
	// far. It is meant to be read once, after the process has exited.
	Diagnostics() string

	// Alive reports whether the process has not yet exited.
	Alive() bool

	// Terminate asks the process to exit (SIGTERM).
	Terminate() error

	// Kill ends the process unconditionally (SIGKILL).
	Kill() error

	// Wait blocks until the process exits or the timeout elapses and
	// reports whether the process exited.
	Wait(timeout time.Duration) bool
}

// Host launches external processes.
type Host interface {
	Launch(name string, args []string) (Handle, error)
}

// ExecHost launches processes with os/exec.
type ExecHost struct{}

// NewExecHost returns a Host backed by os/exec.
func NewExecHost() *ExecHost {
	return &ExecHost{}
}

// Launch starts name with args in a new process group. Stdin is piped for
// commands, stdout is discarded and stderr is captured for diagnostics.
func (h *ExecHost) Launch(name string, args []string) (Handle, error) {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}

	p := &execHandle{
		cmd:   cmd,
		stdin: stdin,
		done:  make(chan struct{}),
	}
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}

	// Reap exactly once; Alive and Wait observe the closed channel.
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

type execHandle struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  boundedBuffer
	done    chan struct{}
	waitErr error
}

func (p *execHandle) PID() int {
	return p.cmd.Process.Pid
}

func (p *execHandle) Stdin() io.Writer {
	return p.stdin
}

func (p *execHandle) Diagnostics() string {
	return p.stderr.String()
}

func (p *execHandle) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execHandle) Terminate() error {
	return p.signal(SignalTerminate)
}

func (p *execHandle) Kill() error {
	return p.signal(SignalKill)
}

func (p *execHandle) signal(sig SignalType) error {
	if !p.Alive() {
		return nil
	}
	err := SendSignal(p.PID(), sig)
	if IsNoSuchProcess(err) {
		return nil
	}
	return err
}

func (p *execHandle) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		return !p.Alive()
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

// boundedBuffer is a goroutine-safe writer that keeps the first
// maxDiagnostics bytes written to it.
type boundedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := maxDiagnostics - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
