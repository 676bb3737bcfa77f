package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/roofline/internal/roi"
)

// ErrInvalidConfiguration marks configurations that cannot be run.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds everything one record invocation needs. It is built once by
// the CLI parser and not modified afterwards.
type Config struct {
	Target     string
	TargetArgs []string // passed to the target verbatim, in order

	ROI            roi.Input
	ReadBytesOnly  bool
	WriteBytesOnly bool
	FlopsOnly      bool
	TimeOnly       bool

	Output      string // output directory; derived when empty
	ProfilePath string // optional HCL profile
	Strict      bool   // reject conflicting flags instead of picking one
	Timeout     time.Duration
	DryRun      bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("%w: target application is required", ErrInvalidConfiguration)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative, got %s", ErrInvalidConfiguration, cfg.Timeout)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%w: invalid log format %q", ErrInvalidConfiguration, cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("%w: invalid log level %q", ErrInvalidConfiguration, cfg.LogLevel)
	}

	cfg.TargetArgs = append([]string(nil), cfg.TargetArgs...)
	return &cfg, nil
}
