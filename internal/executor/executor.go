// Package executor runs a pass plan against the instrumentation engine, one
// pass at a time, in plan order.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/vk/roofline/internal/command"
	"github.com/vk/roofline/internal/ctxlog"
	"github.com/vk/roofline/internal/plan"
)

// ErrTimeout is returned when a pass exceeds the configured timeout.
var ErrTimeout = errors.New("pass timed out")

// ProcessError reports a pass whose engine process failed to start or
// exited non-zero. ExitCode is -1 when no exit status is available.
type ProcessError struct {
	Index    int
	Total    int
	Purpose  plan.Purpose
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s pass (%d/%d) failed with exit status %d", e.Purpose, e.Index, e.Total, e.ExitCode)
	}
	return fmt.Sprintf("%s pass (%d/%d) failed: %v", e.Purpose, e.Index, e.Total, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Job is everything a plan needs besides the passes themselves.
type Job struct {
	OutputDir  string
	Target     string
	TargetArgs []string
}

// Executor runs plans sequentially through a Runner.
type Executor struct {
	runner  Runner
	engine  command.Engine
	timeout time.Duration
}

// New creates an Executor. A zero timeout lets every pass run until it
// exits on its own.
func New(runner Runner, engine command.Engine, timeout time.Duration) *Executor {
	return &Executor{runner: runner, engine: engine, timeout: timeout}
}

// Execute composes and runs each pass in order, waiting for each to finish
// before starting the next. The first failing pass stops the plan; passes
// are never retried.
func (e *Executor) Execute(ctx context.Context, p plan.Plan, job Job) error {
	logger := ctxlog.FromContext(ctx)
	passes := p.Passes()
	logger.Debug("Executor starting plan.", "passes", len(passes), "timeout", e.timeout)

	for i, pass := range passes {
		index := i + 1
		passCtx := ctxlog.With(ctx, "pass", pass.Purpose.String(), "index", index, "total", len(passes))
		passLogger := ctxlog.FromContext(passCtx)

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled before %s pass: %w", pass.Purpose, err)
		}

		cmd := command.Compose(e.engine, pass, job.OutputDir, job.Target, job.TargetArgs)
		passLogger.Info("▶️ Starting pass", "command", cmd.String())

		start := time.Now()
		if err := e.runPass(passCtx, cmd); err != nil {
			if errors.Is(err, ErrTimeout) {
				passLogger.Error("Pass timed out.", "timeout", e.timeout)
				return fmt.Errorf("%s pass (%d/%d): %w after %s", pass.Purpose, index, len(passes), err, e.timeout)
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%s pass (%d/%d) interrupted: %w", pass.Purpose, index, len(passes), ctx.Err())
			}
			procErr := &ProcessError{Index: index, Total: len(passes), Purpose: pass.Purpose, ExitCode: -1, Err: err}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				procErr.ExitCode = exitErr.ExitCode()
			}
			passLogger.Error("Pass failed, skipping remaining passes.", "error", procErr, "remaining", len(passes)-index)
			return procErr
		}

		passLogger.Info("✅ Pass finished", "elapsed", time.Since(start).Round(time.Millisecond))
	}

	logger.Debug("Executor finished plan.")
	return nil
}

func (e *Executor) runPass(ctx context.Context, cmd command.Command) error {
	if e.timeout <= 0 {
		return e.runner.Run(ctx, cmd)
	}

	passCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := e.runner.Run(passCtx, cmd)
	if err != nil && ctx.Err() == nil && errors.Is(passCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
