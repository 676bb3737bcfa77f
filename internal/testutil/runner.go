package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vk/roofline/internal/command"
)

// RecordingRunner is a fake engine. It records every command it is asked to
// run and, like the real client, writes one CSV file into the folder given by
// --output_folder.
type RecordingRunner struct {
	// Errors maps a 1-based call number to the error that call returns.
	Errors map[int]error
	// SkipOutput disables writing result files.
	SkipOutput bool

	mu       sync.Mutex
	commands []command.Command
}

// Run implements executor.Runner.
func (r *RecordingRunner) Run(ctx context.Context, cmd command.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	call := len(r.commands)
	r.mu.Unlock()

	if err, ok := r.Errors[call]; ok {
		return err
	}
	if r.SkipOutput {
		return nil
	}

	dir := OutputFolder(cmd)
	if dir == "" {
		return fmt.Errorf("recording runner: %s missing from %v", command.FlagOutputFolder, cmd.Args)
	}
	name := fmt.Sprintf("pass%d.csv", call)
	if slices.Contains(cmd.Args, "--time_run") {
		name = fmt.Sprintf("pass%d_time.csv", call)
	}
	return os.WriteFile(filepath.Join(dir, name), []byte("label,thread,flops,bytes\n"), 0o644)
}

// Commands returns the commands run so far, in order.
func (r *RecordingRunner) Commands() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// OutputFolder returns the value of --output_folder in cmd, or "".
func OutputFolder(cmd command.Command) string {
	i := slices.Index(cmd.Args, command.FlagOutputFolder)
	if i < 0 || i+1 >= len(cmd.Args) {
		return ""
	}
	return cmd.Args[i+1]
}
