// Package registry adapts the ALSA sequencer tools (aconnect) into a small
// client for listing MIDI clients and routing them to the engine.
package registry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrRegistryUnavailable is returned when the listing tool is missing, times
// out or fails to run.
var ErrRegistryUnavailable = errors.New("device registry unavailable")

// Client is one registry entry.
type Client struct {
	ID   string
	Name string
}

// Config controls how the registry tool is invoked.
type Config struct {
	Tool         string        // aconnect
	EngineClient string        // substring identifying the engine's client name
	SystemIDs    []int         // fixed system client ids that are never routed
	Timeout      time.Duration // per invocation
}

// Runner executes the registry tool. It returns the tool's stdout and
// stderr; a non-nil error means the tool did not exit successfully.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Registry lists and routes sequencer clients. When the tool is not
// installed it is disabled and every operation is a logged no-op.
type Registry struct {
	cfg     Config
	runner  Runner
	enabled bool
	logger  *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithRunner replaces the command runner and marks the registry enabled.
func WithRunner(r Runner) Option {
	return func(reg *Registry) {
		reg.runner = r
		reg.enabled = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(reg *Registry) { reg.logger = l }
}

// New creates a Registry, probing PATH for the configured tool.
func New(cfg Config, opts ...Option) *Registry {
	reg := &Registry{
		cfg:    cfg,
		runner: ExecRunner{},
		logger: zap.NewNop(),
	}
	if _, err := exec.LookPath(cfg.Tool); err == nil {
		reg.enabled = true
	}
	for _, o := range opts {
		o(reg)
	}
	if !reg.enabled {
		reg.logger.Warn("registry tool not found, device routing disabled", zap.String("tool", cfg.Tool))
	}
	return reg
}

// Enabled reports whether the registry tool is available.
func (r *Registry) Enabled() bool {
	return r.enabled
}

// ListClients returns all routable clients: system ids and the engine's own
// client are excluded.
func (r *Registry) ListClients(ctx context.Context) ([]Client, error) {
	if !r.enabled {
		r.logger.Debug("registry disabled, no clients listed")
		return nil, nil
	}
	entries, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	var clients []Client
	for _, e := range entries {
		if r.isSystem(e.ID) || r.isEngine(e.Name) {
			continue
		}
		clients = append(clients, e)
	}
	return clients, nil
}

// FindEngineEndpoint returns the engine's client id, if it is registered.
func (r *Registry) FindEngineEndpoint(ctx context.Context) (string, bool, error) {
	if !r.enabled {
		return "", false, nil
	}
	entries, err := r.list(ctx)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if r.isEngine(e.Name) {
			return e.ID, true, nil
		}
	}
	return "", false, nil
}

// Route connects port 0 of src to port 0 of dst. A refusal by the tool is
// reported as false with a nil error.
func (r *Registry) Route(ctx context.Context, src, dst string) (bool, error) {
	if !r.enabled {
		return false, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, stderr, err := r.runner.Run(ctx, r.cfg.Tool, src+":0", dst+":0")
	if err != nil {
		if unavailable(ctx, err) {
			return false, fmt.Errorf("%w: routing %s -> %s: %v", ErrRegistryUnavailable, src, dst, err)
		}
		r.logger.Warn("route refused",
			zap.String("source", src),
			zap.String("dest", dst),
			zap.String("stderr", strings.TrimSpace(stderr)),
		)
		return false, nil
	}
	r.logger.Info("routed client", zap.String("source", src+":0"), zap.String("dest", dst+":0"))
	return true, nil
}

func (r *Registry) list(ctx context.Context) ([]Client, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stdout, _, err := r.runner.Run(ctx, r.cfg.Tool, "-l")
	if err != nil {
		return nil, fmt.Errorf("%w: listing clients: %v", ErrRegistryUnavailable, err)
	}
	return parseClients(stdout), nil
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

func (r *Registry) isSystem(id string) bool {
	n, err := strconv.Atoi(id)
	if err != nil {
		return false
	}
	for _, sys := range r.cfg.SystemIDs {
		if n == sys {
			return true
		}
	}
	return false
}

func (r *Registry) isEngine(name string) bool {
	return r.cfg.EngineClient != "" && strings.Contains(name, r.cfg.EngineClient)
}

// unavailable distinguishes a missing or hung tool from one that ran and
// exited non-zero.
func unavailable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var exitErr *exec.ExitError
	return !errors.As(err, &exitErr)
}

// clientLine matches lines like: client 20: 'MPK mini 3' [type=kernel,card=1]
var clientLine = regexp.MustCompile(`^client\s+(\d+):\s+'(.+?)'`)

func parseClients(out string) []Client {
	var clients []Client
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := clientLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		clients = append(clients, Client{ID: m[1], Name: m[2]})
	}
	return clients
}
