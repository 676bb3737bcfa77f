// Package command composes the exact engine invocation for one pass. The
// result is a discrete argument list; nothing here goes through a shell.
package command

import (
	"github.com/kballard/go-shellquote"

	"github.com/vk/roofline/internal/plan"
)

const (
	// FlagClient selects the engine client library.
	FlagClient = "-c"
	// FlagOutputFolder points the client at the run's output directory.
	FlagOutputFolder = "--output_folder"
	// Separator divides engine flags from the target invocation.
	Separator = "--"
)

// Engine locates the instrumentation engine launcher and its client library.
type Engine struct {
	Launcher string
	Client   string
}

// Command is a fully resolved engine invocation.
type Command struct {
	Path string
	Args []string
}

// Compose builds the invocation for a pass:
//
//	<launcher> -c <client> --output_folder <dir> <pass options> -- <target> <target args>
func Compose(engine Engine, pass plan.Pass, outputDir, target string, targetArgs []string) Command {
	args := make([]string, 0, 6+len(pass.Options)+len(targetArgs))
	args = append(args, FlagClient, engine.Client, FlagOutputFolder, outputDir)
	args = append(args, pass.Options...)
	args = append(args, Separator, target)
	args = append(args, targetArgs...)

	return Command{Path: engine.Launcher, Args: args}
}

// Argv returns the path followed by the arguments.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command shell-quoted, for display only.
func (c Command) String() string {
	return shellquote.Join(c.Argv()...)
}
