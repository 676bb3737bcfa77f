package roi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/roofline/internal/ctxlog"
)

// Engine flags emitted for a region of interest.
const (
	FlagStart          = "--roi_start"
	FlagEnd            = "--roi_end"
	FlagLabel          = "--label_roi"
	FlagTraceFunction  = "--trace_f"
	FlagCallsSeparated = "--calls_as_separate_roi"
)

// ErrConflict is returned by Resolve in strict mode when flags belonging to
// more than one region kind were given.
var ErrConflict = errors.New("conflicting region of interest flags")

// Kind identifies how the region of interest is delimited.
type Kind int

const (
	// WholeProgram measures the entire process lifetime.
	WholeProgram Kind = iota
	// MarkerDelimited starts and stops measuring at calls to marker functions.
	MarkerDelimited
	// TracedFunction measures every execution of one function body.
	TracedFunction
)

func (k Kind) String() string {
	switch k {
	case WholeProgram:
		return "whole_program"
	case MarkerDelimited:
		return "marker_delimited"
	case TracedFunction:
		return "traced_function"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Input holds the raw region flags exactly as the user supplied them.
type Input struct {
	Start           string
	End             string
	Label           bool
	TraceFunction   string
	CallsAsSeparate bool
}

// Spec is the canonical region of interest. Only the fields belonging to
// Kind are meaningful.
type Spec struct {
	Kind Kind

	// MarkerDelimited
	Start string
	End   string
	Label bool

	// TracedFunction
	Function string
	PerCall  bool
}

// Resolve turns the raw flags into exactly one region kind. Markers win
// over a traced function, which wins over the whole program. Flags that the
// winning kind does not use are logged and dropped, or rejected with
// ErrConflict when strict is set.
func Resolve(ctx context.Context, in Input, strict bool) (Spec, error) {
	logger := ctxlog.FromContext(ctx)

	var spec Spec
	var ignored []string

	switch {
	case in.Start != "" || in.End != "":
		spec = Spec{Kind: MarkerDelimited, Start: in.Start, End: in.End, Label: in.Label}
		if in.TraceFunction != "" {
			ignored = append(ignored, FlagTraceFunction)
		}
		if in.CallsAsSeparate {
			ignored = append(ignored, FlagCallsSeparated)
		}
	case in.TraceFunction != "":
		spec = Spec{Kind: TracedFunction, Function: in.TraceFunction, PerCall: in.CallsAsSeparate}
		if in.Label {
			ignored = append(ignored, FlagLabel)
		}
	default:
		spec = Spec{Kind: WholeProgram}
		if in.Label {
			ignored = append(ignored, FlagLabel)
		}
		if in.CallsAsSeparate {
			ignored = append(ignored, FlagCallsSeparated)
		}
	}

	if len(ignored) > 0 {
		if strict {
			return Spec{}, fmt.Errorf("%w: %s cannot be combined with a %s region", ErrConflict, strings.Join(ignored, ", "), spec.Kind)
		}
		logger.Warn("Ignoring region of interest flags that do not apply.", "roi", spec.Kind.String(), "ignored", ignored)
	}

	if spec.Kind == MarkerDelimited && (spec.Start == "" || spec.End == "") {
		logger.Warn("Region of interest has only one marker.", "roi_start", spec.Start, "roi_end", spec.End)
	}

	logger.Debug("Region of interest resolved.", "roi", spec.Kind.String())
	return spec, nil
}

// Flags returns the engine flags for the region, in a stable order. A whole
// program region has no flags.
func (s Spec) Flags() []string {
	var flags []string
	switch s.Kind {
	case MarkerDelimited:
		if s.Start != "" {
			flags = append(flags, FlagStart, s.Start)
		}
		if s.End != "" {
			flags = append(flags, FlagEnd, s.End)
		}
		if s.Label {
			flags = append(flags, FlagLabel)
		}
	case TracedFunction:
		flags = append(flags, FlagTraceFunction, s.Function)
		if s.PerCall {
			flags = append(flags, FlagCallsSeparated)
		}
	}
	return flags
}
