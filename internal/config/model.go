package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Default engine locations, relative to the tool directory.
const (
	DefaultLauncher = "dynamorio/build/bin64/drrun"
	DefaultClient   = "client/build/libroofline.so"
)

// Model is the unified, format-agnostic representation of a profile.
type Model struct {
	Engine Engine
	// Upload is nil when results are not published.
	Upload *Upload
}

// Engine locates the instrumentation engine.
type Engine struct {
	Launcher string
	Client   string
	// Timeout bounds every pass. Zero means no limit.
	Timeout time.Duration
}

// Upload describes the object store results are published to.
type Upload struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Defaults returns the model used when no profile is given.
func Defaults(toolDir string) *Model {
	return &Model{
		Engine: Engine{
			Launcher: filepath.Join(toolDir, DefaultLauncher),
			Client:   filepath.Join(toolDir, DefaultClient),
		},
	}
}

// Validate reports the first missing required field.
func (u *Upload) Validate() error {
	if u.Endpoint == "" {
		return errors.New("upload endpoint is required")
	}
	if u.Bucket == "" {
		return errors.New("upload bucket is required")
	}
	if (u.AccessKey == "") != (u.SecretKey == "") {
		return fmt.Errorf("upload to %s: access_key and secret_key must be set together", u.Endpoint)
	}
	return nil
}
