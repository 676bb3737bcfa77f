package app

import (
	"fmt"
	"time"

	"github.com/vk/roofline/internal/command"
	"github.com/vk/roofline/internal/executor"
	"github.com/vk/roofline/internal/plan"
	"github.com/vk/roofline/internal/roi"
	"gopkg.in/yaml.v3"
)

type dryRun struct {
	region  roi.Spec
	scope   plan.ByteScope
	mode    plan.Mode
	plan    plan.Plan
	engine  command.Engine
	job     executor.Job
	timeout time.Duration
}

// DryRunReport is the document printed by --dry-run.
type DryRunReport struct {
	Target     string       `yaml:"target"`
	TargetArgs []string     `yaml:"target_args,omitempty"`
	OutputDir  string       `yaml:"output_dir"`
	ROI        string       `yaml:"roi"`
	ByteScope  string       `yaml:"byte_scope"`
	Mode       string       `yaml:"mode"`
	Timeout    string       `yaml:"timeout,omitempty"`
	Passes     []DryRunPass `yaml:"passes"`
}

// DryRunPass is one planned engine invocation.
type DryRunPass struct {
	Purpose string   `yaml:"purpose"`
	Command string   `yaml:"command"`
	Argv    []string `yaml:"argv"`
}

func (a *App) writeDryRun(d dryRun) error {
	report := DryRunReport{
		Target:     d.job.Target,
		TargetArgs: d.job.TargetArgs,
		OutputDir:  d.job.OutputDir,
		ROI:        d.region.Kind.String(),
		ByteScope:  d.scope.String(),
		Mode:       d.mode.String(),
	}
	if d.timeout > 0 {
		report.Timeout = d.timeout.String()
	}
	for _, pass := range d.plan.Passes() {
		cmd := command.Compose(d.engine, pass, d.job.OutputDir, d.job.Target, d.job.TargetArgs)
		report.Passes = append(report.Passes, DryRunPass{
			Purpose: pass.Purpose.String(),
			Command: cmd.String(),
			Argv:    cmd.Argv(),
		})
	}

	enc := yaml.NewEncoder(a.outW)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write dry run report: %w", err)
	}
	return enc.Close()
}
