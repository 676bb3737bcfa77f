package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/roofline/internal/config"
	"github.com/vk/roofline/internal/executor"
	"github.com/vk/roofline/internal/upload"
)

// Publisher uploads a finished output directory somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, dir string) (int, error)
}

// PublisherFactory creates a Publisher from profile settings.
type PublisherFactory func(cfg config.Upload) (Publisher, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW         io.Writer
	logger       *slog.Logger
	config       *Config
	loader       config.Loader
	runner       executor.Runner
	newPublisher PublisherFactory
	workDir      string
	toolDir      string
	environ      []string
	now          func() time.Time
}

// Option customizes an App. Tests use options to replace the process
// runner, the clock and the filesystem roots.
type Option func(*App)

// WithRunner replaces the engine process runner.
func WithRunner(r executor.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithWorkDir sets the directory relative output paths are rooted at.
func WithWorkDir(dir string) Option {
	return func(a *App) { a.workDir = dir }
}

// WithToolDir sets the directory default engine paths are relative to.
func WithToolDir(dir string) Option {
	return func(a *App) { a.toolDir = dir }
}

// WithEnviron replaces the environment seen by profiles and overrides.
func WithEnviron(env []string) Option {
	return func(a *App) { a.environ = env }
}

// WithClock replaces the clock used for derived directory names.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithPublisherFactory replaces how result publishers are created.
func WithPublisherFactory(f PublisherFactory) Option {
	return func(a *App) { a.newPublisher = f }
}

// NewApp is the constructor for the main application. Logs go to logW;
// dry-run output and the engine's standard output go to outW.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	a := &App{
		outW:    outW,
		logger:  newLogger(cfg.LogLevel, cfg.LogFormat, logW),
		config:  cfg,
		loader:  loader,
		runner:  &executor.ExecRunner{Stdin: os.Stdin, Stdout: outW, Stderr: logW},
		environ: os.Environ(),
		now:     time.Now,
		newPublisher: func(cfg config.Upload) (Publisher, error) {
			p, err := upload.New(cfg)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("Logger configured successfully.")
	return a
}

// executableDir returns the directory holding the running binary.
func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			m[k] = v
		}
	}
	return m
}
