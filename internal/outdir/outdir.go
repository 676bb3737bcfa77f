// Package outdir allocates the directory a run writes its results into. A
// run always gets a fresh directory; existing paths are never reused.
package outdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/roofline/internal/ctxlog"
)

// TimestampLayout is appended to derived directory names, in UTC.
const TimestampLayout = "2006-01-02_15:04:05"

// ErrDirectoryCollision is returned when the output path already exists.
var ErrDirectoryCollision = errors.New("output directory already exists")

// DefaultName derives a directory name from the target invocation: the
// target and its arguments joined by spaces, without a leading "./", with
// spaces replaced by underscores, followed by the timestamp.
func DefaultName(target string, targetArgs []string, now time.Time) string {
	app := strings.Join(append([]string{target}, targetArgs...), " ")
	app = strings.TrimPrefix(app, "./")
	return strings.ReplaceAll(app, " ", "_") + now.UTC().Format(TimestampLayout)
}

// Resolve returns the absolute output path for a run. A user supplied name
// is joined to workDir unless it is already absolute; otherwise a name is
// derived with DefaultName and joined to workDir.
func Resolve(name, workDir, target string, targetArgs []string, now time.Time) string {
	if name == "" {
		return filepath.Join(workDir, DefaultName(target, targetArgs, now))
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(workDir, name)
}

// Allocate creates path and any missing parents. If path already exists,
// nothing is created or modified and ErrDirectoryCollision is returned.
func Allocate(ctx context.Context, path string) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: %s, please specify a different destination", ErrDirectoryCollision, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to inspect output directory %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of output directory %s: %w", path, err)
	}

	// The final component is created exclusively so a concurrent creator is
	// also reported as a collision.
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s, please specify a different destination", ErrDirectoryCollision, path)
		}
		return fmt.Errorf("failed to create output directory %s: %w", path, err)
	}

	logger.Info("📁 Output directory created.", "path", path)
	return nil
}
