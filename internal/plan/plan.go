// Package plan decides which instrumentation passes a run needs and in what
// order. Planning is pure: nothing here touches the filesystem or starts a
// process.
package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/roofline/internal/ctxlog"
	"github.com/vk/roofline/internal/roi"
)

// Engine flags owned by the planner.
const (
	FlagReadBytesOnly  = "--read_bytes_only"
	FlagWriteBytesOnly = "--write_bytes_only"
	FlagDumpCSV        = "--dump_csv"
	FlagTimeRun        = "--time_run"
)

// ErrConflict is returned in strict mode when mutually exclusive
// measurement or byte scope flags are combined.
var ErrConflict = errors.New("conflicting measurement flags")

// ByteScope selects which memory accesses are counted.
type ByteScope int

const (
	AllBytes ByteScope = iota
	ReadBytesOnly
	WriteBytesOnly
)

func (s ByteScope) String() string {
	switch s {
	case AllBytes:
		return "all"
	case ReadBytesOnly:
		return "read_only"
	case WriteBytesOnly:
		return "write_only"
	default:
		return fmt.Sprintf("byte_scope(%d)", int(s))
	}
}

// Flags returns the engine flag for the scope, if any.
func (s ByteScope) Flags() []string {
	switch s {
	case ReadBytesOnly:
		return []string{FlagReadBytesOnly}
	case WriteBytesOnly:
		return []string{FlagWriteBytesOnly}
	default:
		return nil
	}
}

// Mode is the measurement mode requested by the user.
type Mode int

const (
	// Full collects memory and FP counts, then runs a separate timing pass.
	Full Mode = iota
	FlopsOnly
	TimeOnly
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case FlopsOnly:
		return "flops_only"
	case TimeOnly:
		return "time_only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Purpose is what a single pass measures.
type Purpose int

const (
	MemoryAndFP Purpose = iota
	Flops
	Timing
)

func (p Purpose) String() string {
	switch p {
	case MemoryAndFP:
		return "memory_fp"
	case Flops:
		return "flops"
	case Timing:
		return "timing"
	default:
		return fmt.Sprintf("purpose(%d)", int(p))
	}
}

// Pass is one execution of the target under the engine.
type Pass struct {
	Purpose Purpose
	Options []string
}

// Plan is an ordered, immutable list of passes.
type Plan struct {
	passes []Pass
}

// Passes returns a copy of the passes in execution order.
func (p Plan) Passes() []Pass {
	out := make([]Pass, len(p.passes))
	for i, pass := range p.passes {
		out[i] = Pass{Purpose: pass.Purpose, Options: append([]string(nil), pass.Options...)}
	}
	return out
}

// Len returns the number of passes.
func (p Plan) Len() int {
	return len(p.passes)
}

// ResolveByteScope picks the byte scope from the raw flags. When both are
// set the read scope wins, unless strict is set.
func ResolveByteScope(ctx context.Context, readOnly, writeOnly, strict bool) (ByteScope, error) {
	switch {
	case readOnly && writeOnly:
		if strict {
			return AllBytes, fmt.Errorf("%w: %s and %s are mutually exclusive", ErrConflict, FlagReadBytesOnly, FlagWriteBytesOnly)
		}
		ctxlog.FromContext(ctx).Warn("Both byte scopes requested, counting read bytes only.", "ignored", FlagWriteBytesOnly)
		return ReadBytesOnly, nil
	case readOnly:
		return ReadBytesOnly, nil
	case writeOnly:
		return WriteBytesOnly, nil
	default:
		return AllBytes, nil
	}
}

// ResolveMode picks the measurement mode from the raw flags. When both are
// set the flops-only mode wins, unless strict is set.
func ResolveMode(ctx context.Context, flopsOnly, timeOnly, strict bool) (Mode, error) {
	switch {
	case flopsOnly && timeOnly:
		if strict {
			return Full, fmt.Errorf("%w: --flops_only and --time_only are mutually exclusive", ErrConflict)
		}
		ctxlog.FromContext(ctx).Warn("Both flops-only and time-only requested, running flops only.", "ignored", "--time_only")
		return FlopsOnly, nil
	case flopsOnly:
		return FlopsOnly, nil
	case timeOnly:
		return TimeOnly, nil
	default:
		return Full, nil
	}
}

// Build creates the pass plan. Every pass shares the same base options; a
// timing pass is the base options plus FlagTimeRun.
func Build(mode Mode, region roi.Spec, scope ByteScope) Plan {
	base := baseOptions(region, scope)

	switch mode {
	case FlopsOnly:
		return Plan{passes: []Pass{{Purpose: Flops, Options: base}}}
	case TimeOnly:
		return Plan{passes: []Pass{{Purpose: Timing, Options: withTimeRun(base)}}}
	default:
		return Plan{passes: []Pass{
			{Purpose: MemoryAndFP, Options: base},
			{Purpose: Timing, Options: withTimeRun(base)},
		}}
	}
}

func baseOptions(region roi.Spec, scope ByteScope) []string {
	opts := region.Flags()
	opts = append(opts, scope.Flags()...)
	return append(opts, FlagDumpCSV)
}

func withTimeRun(base []string) []string {
	opts := make([]string, 0, len(base)+1)
	opts = append(opts, base...)
	return append(opts, FlagTimeRun)
}
