package config

import (
	"context"
)

// Variables are the values a profile may reference when it is evaluated.
type Variables struct {
	// ToolDir is the directory holding the roofline executable.
	ToolDir string
	// WorkDir is the current working directory.
	WorkDir string
	// Env is the process environment.
	Env map[string]string
}

// Loader is the interface for a format-specific profile loader.
type Loader interface {
	// Load reads the profile at path and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, path string, vars Variables) (*Model, error)
}
