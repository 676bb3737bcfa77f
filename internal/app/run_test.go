package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/roofline/internal/config"
	"github.com/vk/roofline/internal/executor"
	"github.com/vk/roofline/internal/outdir"
	"github.com/vk/roofline/internal/plan"
	"github.com/vk/roofline/internal/roi"
	"github.com/vk/roofline/internal/testutil"
	"gopkg.in/yaml.v3"
)

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_FlopsOnly(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := setupAppTest(t, Config{Target: "./app", FlopsOnly: true})

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	cmds := h.Runner.Commands()
	require.Len(t, cmds, 1)
	require.NotContains(t, cmds[0].Args, plan.FlagTimeRun)
	require.Contains(t, cmds[0].Args, plan.FlagDumpCSV)

	outDir := filepath.Join(h.WorkDir, "app2024-03-09_14:05:07")
	require.Equal(t, outDir, testutil.OutputFolder(cmds[0]))
	require.Equal(t, []string{"pass1.csv"}, dirEntries(t, outDir), "only the engine writes into the output directory")
}

func TestRun_MarkersWithNamedOutput(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := setupAppTest(t, Config{
		Target:     "./app",
		TargetArgs: []string{"--size", "64"},
		ROI:        roi.Input{Start: "main", End: "cleanup"},
		Output:     "results",
	})

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	cmds := h.Runner.Commands()
	require.Len(t, cmds, 2)

	outDir := filepath.Join(h.WorkDir, "results")
	for _, cmd := range cmds {
		joined := strings.Join(cmd.Args, " ")
		require.Contains(t, joined, "--roi_start main --roi_end cleanup")
		require.Equal(t, outDir, testutil.OutputFolder(cmd))
		require.Equal(t, []string{"--", "./app", "--size", "64"}, cmd.Args[len(cmd.Args)-4:])
	}
	require.NotContains(t, cmds[0].Args, plan.FlagTimeRun)
	require.Equal(t, plan.FlagTimeRun, cmds[1].Args[len(cmds[1].Args)-5])
	require.Equal(t, []string{"pass1.csv", "pass2_time.csv"}, dirEntries(t, outDir))
}

func TestRun_ExistingOutputAbortsBeforeAnyPass(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := setupAppTest(t, Config{Target: "./app", Output: "results"})
	existing := filepath.Join(h.WorkDir, "results")
	require.NoError(t, os.Mkdir(existing, 0o755))

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	require.ErrorIs(t, err, outdir.ErrDirectoryCollision)
	require.Empty(t, h.Runner.Commands())
	require.Empty(t, dirEntries(t, existing))
}

func TestRun_FailedPassStopsThePlan(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := setupAppTest(t, Config{Target: "./app", Output: "results"})
	h.Runner.Errors = map[int]error{1: errors.New("engine crashed")}

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	var procErr *executor.ProcessError
	require.True(t, errors.As(err, &procErr), "expected ProcessError, got %v", err)
	require.Equal(t, plan.MemoryAndFP, procErr.Purpose)
	require.Len(t, h.Runner.Commands(), 1)
	require.Contains(t, err.Error(), filepath.Join(h.WorkDir, "results"))
}

func TestRun_StrictRejectsConflicts(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		cfg      Config
		sentinel error
	}{
		{
			name:     "Markers and traced function",
			cfg:      Config{Target: "./app", Strict: true, ROI: roi.Input{Start: "a", TraceFunction: "f"}},
			sentinel: roi.ErrConflict,
		},
		{
			name:     "Both measurement modes",
			cfg:      Config{Target: "./app", Strict: true, FlopsOnly: true, TimeOnly: true},
			sentinel: plan.ErrConflict,
		},
		{
			name:     "Both byte scopes",
			cfg:      Config{Target: "./app", Strict: true, ReadBytesOnly: true, WriteBytesOnly: true},
			sentinel: plan.ErrConflict,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := setupAppTest(t, tc.cfg)

			err := h.App.Run(context.Background())

			require.ErrorIs(t, err, ErrInvalidConfiguration)
			require.ErrorIs(t, err, tc.sentinel)
			require.Empty(t, h.Runner.Commands())
			require.Empty(t, dirEntries(t, h.WorkDir), "no output directory may be created")
		})
	}
}

func TestRun_LenientConflictUsesFirstMatch(t *testing.T) {
	t.Parallel()

	h := setupAppTest(t, Config{Target: "./app", FlopsOnly: true, ROI: roi.Input{Start: "a", End: "b", TraceFunction: "f"}})

	require.NoError(t, h.App.Run(context.Background()))

	cmds := h.Runner.Commands()
	require.Len(t, cmds, 1)
	require.NotContains(t, cmds[0].Args, roi.FlagTraceFunction)
	require.Contains(t, h.Logs.String(), "Ignoring region of interest flags")
}

func TestRun_DryRunCreatesAndRunsNothing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := setupAppTest(t, Config{
		Target:         "./app",
		ROI:            roi.Input{TraceFunction: "dgemm", CallsAsSeparate: true},
		WriteBytesOnly: true,
		DryRun:         true,
	})

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Empty(t, h.Runner.Commands())
	require.Empty(t, dirEntries(t, h.WorkDir))

	var report DryRunReport
	require.NoError(t, yaml.Unmarshal(h.Out.Bytes(), &report))
	require.Equal(t, "traced_function", report.ROI)
	require.Equal(t, "write_only", report.ByteScope)
	require.Equal(t, "full", report.Mode)
	require.Len(t, report.Passes, 2)
	require.Equal(t, "memory_fp", report.Passes[0].Purpose)
	require.Equal(t, "timing", report.Passes[1].Purpose)

	wantFirst := []string{
		"/opt/roofline/dynamorio/build/bin64/drrun",
		"-c", "/opt/roofline/client/build/libroofline.so",
		"--output_folder", filepath.Join(h.WorkDir, "app2024-03-09_14:05:07"),
		"--trace_f", "dgemm", "--calls_as_separate_roi", "--write_bytes_only", "--dump_csv",
		"--", "./app",
	}
	if diff := cmp.Diff(wantFirst, report.Passes[0].Argv); diff != "" {
		t.Errorf("first pass argv mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ProfileAndEnvironmentLocateEngine(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	profile := filepath.Join(t.TempDir(), "roofline.hcl")
	require.NoError(t, os.WriteFile(profile, []byte(`
engine {
  launcher = "${tool_dir}/dr/drrun"
  client   = "${tool_dir}/lib/libroofline.so"
  timeout  = "1h"
}
`), 0o644))
	h := setupAppTest(t,
		Config{Target: "./app", TimeOnly: true, ProfilePath: profile},
		WithEnviron([]string{EnvClient + "=/custom/libroofline.so"}),
	)

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	cmds := h.Runner.Commands()
	require.Len(t, cmds, 1)
	require.Equal(t, "/opt/roofline/dr/drrun", cmds[0].Path)
	require.Equal(t, []string{"-c", "/custom/libroofline.so"}, cmds[0].Args[:2])
	require.Contains(t, cmds[0].Args, plan.FlagTimeRun)
}

func TestRun_InvalidProfile(t *testing.T) {
	t.Parallel()

	h := setupAppTest(t, Config{Target: "./app", ProfilePath: filepath.Join(t.TempDir(), "missing.hcl")})

	err := h.App.Run(context.Background())

	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Empty(t, h.Runner.Commands())
}

type fakePublisher struct {
	dirs []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, dir string) (int, error) {
	p.dirs = append(p.dirs, dir)
	return 1, p.err
}

func TestRun_PublishesAfterAllPasses(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	profile := filepath.Join(t.TempDir(), "roofline.hcl")
	require.NoError(t, os.WriteFile(profile, []byte(`
upload {
  endpoint = "minio.local:9000"
  bucket   = "roofline"
  prefix   = "runs"
}
`), 0o644))
	publisher := &fakePublisher{}
	var got config.Upload
	h := setupAppTest(t,
		Config{Target: "./app", Output: "results", ProfilePath: profile},
		WithPublisherFactory(func(cfg config.Upload) (Publisher, error) {
			got = cfg
			return publisher, nil
		}),
	)

	// --- Act ---
	err := h.App.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "roofline", got.Bucket)
	require.Equal(t, []string{filepath.Join(h.WorkDir, "results")}, publisher.dirs)
	require.Len(t, h.Runner.Commands(), 2)
}

func TestRun_NoPublishWhenAPassFails(t *testing.T) {
	t.Parallel()

	profile := filepath.Join(t.TempDir(), "roofline.hcl")
	require.NoError(t, os.WriteFile(profile, []byte(`
upload {
  endpoint = "minio.local:9000"
  bucket   = "roofline"
}
`), 0o644))
	publisher := &fakePublisher{}
	h := setupAppTest(t,
		Config{Target: "./app", ProfilePath: profile},
		WithPublisherFactory(func(config.Upload) (Publisher, error) { return publisher, nil }),
	)
	h.Runner.Errors = map[int]error{2: errors.New("timing pass crashed")}

	err := h.App.Run(context.Background())

	require.Error(t, err)
	require.Empty(t, publisher.dirs)
}
