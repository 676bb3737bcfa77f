package executor

import (
	"context"
	"io"
	"os/exec"

	"github.com/vk/roofline/internal/command"
)

// Runner executes a single engine invocation and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, cmd command.Command) error
}

// ExecRunner runs commands as child processes. The engine's standard
// streams are connected to the given readers and writers.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the command and waits for it. A non-zero exit is returned as
// an *exec.ExitError. Cancelling ctx kills the child.
func (r *ExecRunner) Run(ctx context.Context, cmd command.Command) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
	return c.Run()
}
