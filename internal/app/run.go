package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vk/roofline/internal/command"
	"github.com/vk/roofline/internal/config"
	"github.com/vk/roofline/internal/ctxlog"
	"github.com/vk/roofline/internal/executor"
	"github.com/vk/roofline/internal/outdir"
	"github.com/vk/roofline/internal/plan"
	"github.com/vk/roofline/internal/roi"
)

// Environment variables that override the profile's engine locations.
const (
	EnvLauncher = "ROOFLINE_LAUNCHER"
	EnvClient   = "ROOFLINE_CLIENT"
)

// Run records the target: it resolves the region and plan, allocates the
// output directory, runs every pass in order and publishes the results if
// the profile asks for it.
func (a *App) Run(ctx context.Context) error {
	logger := a.logger.With("run_id", uuid.NewString())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.", "target", a.config.Target, "target_args", a.config.TargetArgs)

	workDir, toolDir, err := a.roots()
	if err != nil {
		return err
	}

	profile, err := a.loadProfile(ctx, workDir, toolDir)
	if err != nil {
		return err
	}

	region, err := roi.Resolve(ctx, a.config.ROI, a.config.Strict)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	scope, err := plan.ResolveByteScope(ctx, a.config.ReadBytesOnly, a.config.WriteBytesOnly, a.config.Strict)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	mode, err := plan.ResolveMode(ctx, a.config.FlopsOnly, a.config.TimeOnly, a.config.Strict)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	passPlan := plan.Build(mode, region, scope)
	logger.Debug("Pass plan built.", "mode", mode.String(), "passes", passPlan.Len())

	engine := command.Engine{Launcher: profile.Engine.Launcher, Client: profile.Engine.Client}
	timeout := profile.Engine.Timeout
	if a.config.Timeout > 0 {
		timeout = a.config.Timeout
	}
	job := executor.Job{
		OutputDir:  outdir.Resolve(a.config.Output, workDir, a.config.Target, a.config.TargetArgs, a.now()),
		Target:     a.config.Target,
		TargetArgs: a.config.TargetArgs,
	}

	if a.config.DryRun {
		logger.Debug("Dry run requested, nothing will be created or executed.")
		return a.writeDryRun(dryRun{region: region, scope: scope, mode: mode, plan: passPlan, engine: engine, job: job, timeout: timeout})
	}

	if err := outdir.Allocate(ctx, job.OutputDir); err != nil {
		return err
	}

	logger.Info("🚀 Recording target application.",
		"target", job.Target,
		"roi", region.Kind.String(),
		"mode", mode.String(),
		"byte_scope", scope.String(),
		"passes", passPlan.Len(),
		"output", job.OutputDir,
	)
	start := time.Now()
	if err := executor.New(a.runner, engine, timeout).Execute(ctx, passPlan, job); err != nil {
		return fmt.Errorf("recording stopped, results so far are in %s: %w", job.OutputDir, err)
	}

	if profile.Upload != nil {
		if err := a.publish(ctx, *profile.Upload, job.OutputDir); err != nil {
			return err
		}
	}

	logger.Info("🏁 Recording finished.", "output", job.OutputDir, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *App) roots() (workDir, toolDir string, err error) {
	workDir = a.workDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("failed to determine working directory: %w", err)
		}
	}
	toolDir = a.toolDir
	if toolDir == "" {
		if toolDir, err = executableDir(); err != nil {
			return "", "", fmt.Errorf("failed to locate the roofline executable: %w", err)
		}
	}
	return workDir, toolDir, nil
}

// loadProfile returns the engine and upload settings: defaults, then the
// profile file if one was given, then environment overrides.
func (a *App) loadProfile(ctx context.Context, workDir, toolDir string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	env := envMap(a.environ)

	profile := config.Defaults(toolDir)
	if a.config.ProfilePath != "" {
		loaded, err := a.loader.Load(ctx, a.config.ProfilePath, config.Variables{ToolDir: toolDir, WorkDir: workDir, Env: env})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		profile = loaded
		logger.Debug("Profile loaded.", "path", a.config.ProfilePath)
	}

	if v := env[EnvLauncher]; v != "" {
		profile.Engine.Launcher = v
	}
	if v := env[EnvClient]; v != "" {
		profile.Engine.Client = v
	}
	logger.Debug("Engine located.", "launcher", profile.Engine.Launcher, "client", profile.Engine.Client)
	return profile, nil
}

func (a *App) publish(ctx context.Context, cfg config.Upload, dir string) error {
	publisher, err := a.newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure result upload: %w", err)
	}
	if _, err := publisher.Publish(ctx, dir); err != nil {
		return fmt.Errorf("results recorded in %s but could not be published: %w", dir, err)
	}
	return nil
}
