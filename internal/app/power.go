package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Shutdowner halts the host machine.
type Shutdowner interface {
	PowerOff(ctx context.Context) error
}

// ExecShutdowner runs a halt command such as "sudo shutdown -h now".
type ExecShutdowner struct {
	Command []string
}

// PowerOff implements Shutdowner.
func (s ExecShutdowner) PowerOff(ctx context.Context) error {
	if len(s.Command) == 0 {
		return errors.New("no power-off command configured")
	}
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %q: %w: %s", strings.Join(s.Command, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
