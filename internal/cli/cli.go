package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/vk/roofline/internal/app"
	"github.com/vk/roofline/internal/executor"
	"github.com/vk/roofline/internal/roi"
)

// Exit codes beyond plain success and failure.
const (
	ExitUsage   = 2
	ExitTimeout = 124
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCodeFor maps an error returned by the application to a process exit
// status. A failed engine pass exits with the engine's own status.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var procErr *executor.ProcessError
	if errors.As(err, &procErr) && procErr.ExitCode > 0 {
		return procErr.ExitCode
	}
	if errors.Is(err, executor.ErrTimeout) {
		return ExitTimeout
	}
	if errors.Is(err, app.ErrInvalidConfiguration) {
		return ExitUsage
	}
	return 1
}

// commonFlags are accepted both before and after the record subcommand.
type commonFlags struct {
	config    string
	logFormat string
	logLevel  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", c.config, "Path to an HCL profile locating the engine and the upload target.")
	fs.StringVar(&c.logFormat, "log-format", c.logFormat, "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&c.logLevel, "log-level", c.logLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	common := &commonFlags{logFormat: "text", logLevel: "info"}

	globalSet := flag.NewFlagSet("roofline", flag.ContinueOnError)
	globalSet.SetOutput(output)
	globalSet.Usage = func() {
		fmt.Fprint(output, `
Roofline - Records the data needed for a roofline model of an application.

Usage:
  roofline [options] record <target_app> [record options] [target args...]

Commands:
  record
    Run the target under the instrumentation engine, once per measurement pass.

Options:
`)
		globalSet.PrintDefaults()
	}
	common.register(globalSet)

	if err := globalSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	if globalSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		globalSet.Usage()
		return nil, true, nil
	}
	if cmd := globalSet.Arg(0); cmd != "record" {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unknown command %q, expected 'record'", cmd)}
	}

	return parseRecord(globalSet.Args()[1:], common, output)
}

func parseRecord(args []string, common *commonFlags, output io.Writer) (*app.Config, bool, error) {
	recordSet := flag.NewFlagSet("roofline record", flag.ContinueOnError)
	recordSet.SetOutput(output)
	recordSet.Usage = func() {
		fmt.Fprint(output, `
Usage:
  roofline record <target_app> [options] [target args...]

Options may appear before or after target_app. Anything the recorder does not
recognize, and everything after '--', is passed to target_app unchanged.

Options:
`)
		recordSet.PrintDefaults()
	}
	common.register(recordSet)

	var (
		cfg     app.Config
		timeout time.Duration
	)
	recordSet.StringVar(&cfg.Output, "output", "", "Output directory for the gathered performance information.")
	recordSet.StringVar(&cfg.Output, "o", "", "Output directory (shorthand).")
	recordSet.StringVar(&cfg.ROI.Start, strings.TrimPrefix(roi.FlagStart, "--"), "", "Function that marks the beginning of the region of interest.")
	recordSet.StringVar(&cfg.ROI.End, strings.TrimPrefix(roi.FlagEnd, "--"), "", "Function that marks the end of the region of interest.")
	recordSet.BoolVar(&cfg.ROI.Label, strings.TrimPrefix(roi.FlagLabel, "--"), false, "The first argument of the roi_start function is a string label.")
	recordSet.StringVar(&cfg.ROI.TraceFunction, strings.TrimPrefix(roi.FlagTraceFunction, "--"), "", "Function whose whole execution is the region of interest.")
	recordSet.BoolVar(&cfg.ROI.CallsAsSeparate, strings.TrimPrefix(roi.FlagCallsSeparated, "--"), false, "With --trace_f, treat each call of the function as its own region.")
	recordSet.BoolVar(&cfg.TimeOnly, "time_only", false, "Gather timing information only.")
	recordSet.BoolVar(&cfg.FlopsOnly, "flops_only", false, "Gather flops and bytes information only.")
	recordSet.BoolVar(&cfg.ReadBytesOnly, "read_bytes_only", false, "Count only bytes that are read.")
	recordSet.BoolVar(&cfg.WriteBytesOnly, "write_bytes_only", false, "Count only bytes that are written.")
	recordSet.BoolVar(&cfg.Strict, "strict", false, "Reject conflicting options instead of using the first one.")
	recordSet.DurationVar(&timeout, "timeout", 0, "Maximum duration of each pass, e.g. '30m'. 0 disables the limit.")
	recordSet.BoolVar(&cfg.DryRun, "dry-run", false, "Print the planned engine invocations and exit.")

	known, positional := splitKnown(recordSet, args)
	if err := recordSet.Parse(known); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "known", known, "positional", positional)

	target, targetArgs := pickTarget(positional)
	if target == "" {
		recordSet.Usage()
		return nil, false, &ExitError{Code: ExitUsage, Message: "record: the target application is required"}
	}

	cfg.Target = target
	cfg.TargetArgs = targetArgs
	cfg.Timeout = timeout
	cfg.ProfilePath = common.config
	cfg.LogFormat = strings.ToLower(common.logFormat)
	cfg.LogLevel = strings.ToLower(common.logLevel)

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "target", config.Target, "target_args", config.TargetArgs)
	return config, false, nil
}

// splitKnown separates the flags defined in fs, with their values, from
// everything else. Order is preserved on both sides. Tokens after "--" are
// never treated as flags, and "--" is never taken as a flag value.
func splitKnown(fs *flag.FlagSet, args []string) (known, rest []string) {
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		if len(tok) < 2 || tok[0] != '-' {
			rest = append(rest, tok)
			continue
		}

		name, _, hasValue := strings.Cut(flagName(tok), "=")
		if name == "" {
			rest = append(rest, tok)
			continue
		}
		if name == "h" || name == "help" {
			known = append(known, tok)
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			rest = append(rest, tok)
			continue
		}

		known = append(known, tok)
		if hasValue || isBoolFlag(f) {
			continue
		}
		if i+1 < len(args) && args[i+1] != "--" {
			i++
			known = append(known, args[i])
		}
	}
	return known, rest
}

// flagName strips the one or two leading dashes the flag package accepts.
// Anything else yields "" and is not a recognizable flag.
func flagName(tok string) string {
	name := strings.TrimPrefix(tok, "-")
	name = strings.TrimPrefix(name, "-")
	if name == "" || name[0] == '-' || name[0] == '=' {
		return ""
	}
	return name
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// pickTarget returns the first token that is not an unknown option, and the
// remaining tokens in order as the target's own arguments. The first "--" is
// dropped; when no target precedes it, the token after it is the target.
func pickTarget(tokens []string) (string, []string) {
	before, after := tokens, []string(nil)
	if sep := slices.Index(tokens, "--"); sep >= 0 {
		before, after = tokens[:sep], tokens[sep+1:]
	}

	for i, tok := range before {
		if strings.HasPrefix(tok, "-") && tok != "-" {
			continue
		}
		args := append(slices.Clone(before[:i]), before[i+1:]...)
		return tok, append(args, after...)
	}
	if len(after) == 0 {
		return "", nil
	}
	return after[0], append(slices.Clone(before), after[1:]...)
}
