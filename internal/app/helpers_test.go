package app

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/roofline/internal/hcl"
	"github.com/vk/roofline/internal/testutil"
)

var testNow = time.Date(2024, time.March, 9, 14, 5, 7, 0, time.UTC)

// appHarness bundles an App with everything a test wants to inspect.
type appHarness struct {
	App     *App
	Runner  *testutil.RecordingRunner
	Logs    *testutil.SafeBuffer
	Out     *bytes.Buffer
	WorkDir string
}

// setupAppTest creates an App rooted at a temporary working directory, with
// a recording runner in place of the engine.
func setupAppTest(t *testing.T, cfg Config, opts ...Option) *appHarness {
	t.Helper()

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	h := &appHarness{
		Runner:  &testutil.RecordingRunner{},
		Logs:    &testutil.SafeBuffer{},
		Out:     &bytes.Buffer{},
		WorkDir: t.TempDir(),
	}
	base := []Option{
		WithRunner(h.Runner),
		WithWorkDir(h.WorkDir),
		WithToolDir("/opt/roofline"),
		WithEnviron(nil),
		WithClock(func() time.Time { return testNow }),
	}
	h.App = NewApp(h.Out, h.Logs, appConfig, hcl.NewLoader(), append(base, opts...)...)

	t.Cleanup(func() {
		if os.Getenv("ROOFLINE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.Logs.String())
		}
	})
	return h
}
