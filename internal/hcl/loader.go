package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/roofline/internal/config"
	"github.com/vk/roofline/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL profile loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is the top-level structure of a profile file.
type fileRoot struct {
	Engine *engineBlock `hcl:"engine,block"`
	Upload *uploadBlock `hcl:"upload,block"`
}

type engineBlock struct {
	Launcher *string `hcl:"launcher,optional"`
	Client   *string `hcl:"client,optional"`
	Timeout  *string `hcl:"timeout,optional"`
}

type uploadBlock struct {
	Endpoint  string `hcl:"endpoint"`
	Bucket    string `hcl:"bucket"`
	Prefix    string `hcl:"prefix,optional"`
	Region    string `hcl:"region,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	UseSSL    bool   `hcl:"use_ssl,optional"`
}

// Load parses the profile at path. Settings the profile leaves out keep the
// values from config.Defaults.
func (l *Loader) Load(ctx context.Context, path string, vars config.Variables) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL profile loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, newEvalContext(vars), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode profile %s: %w", path, diags)
	}

	model := config.Defaults(vars.ToolDir)
	if root.Engine != nil {
		if err := translateEngine(root.Engine, &model.Engine); err != nil {
			return nil, fmt.Errorf("in profile %s: %w", path, err)
		}
	}
	if root.Upload != nil {
		model.Upload = translateUpload(root.Upload)
		if err := model.Upload.Validate(); err != nil {
			return nil, fmt.Errorf("in profile %s: %w", path, err)
		}
	}

	logger.Debug("HCL profile loaded.",
		"launcher", model.Engine.Launcher,
		"client", model.Engine.Client,
		"timeout", model.Engine.Timeout,
		"upload", model.Upload != nil,
	)
	return model, nil
}

func translateEngine(b *engineBlock, out *config.Engine) error {
	if b.Launcher != nil && *b.Launcher != "" {
		out.Launcher = *b.Launcher
	}
	if b.Client != nil && *b.Client != "" {
		out.Client = *b.Client
	}
	if b.Timeout != nil && *b.Timeout != "" {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return fmt.Errorf("invalid engine timeout %q: %w", *b.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid engine timeout %q: must not be negative", *b.Timeout)
		}
		out.Timeout = d
	}
	return nil
}

func translateUpload(b *uploadBlock) *config.Upload {
	return &config.Upload{
		Endpoint:  b.Endpoint,
		Bucket:    b.Bucket,
		Prefix:    b.Prefix,
		Region:    b.Region,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
		UseSSL:    b.UseSSL,
	}
}
