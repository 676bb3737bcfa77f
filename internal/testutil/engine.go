package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const stubEngineScript = `#!/bin/sh
echo "$@" >> %q
out=""
prev=""
for arg in "$@"; do
  if [ "$arg" = "--" ]; then
    break
  fi
  if [ "$prev" = "--output_folder" ]; then
    out="$arg"
  fi
  prev="$arg"
done
n=$(ls "$out" | wc -l | tr -d ' ')
echo "label,thread,flops,bytes" > "$out/stub_$n.csv"
exit %d
`

// StubEngine is a shell script standing in for the engine launcher.
type StubEngine struct {
	// Path is the executable script.
	Path string
	// LogPath receives one line of arguments per invocation.
	LogPath string
}

// WriteStubEngine writes an executable engine stub into a temporary
// directory. Each invocation appends its arguments to LogPath, writes one CSV
// file into the --output_folder directory and exits with exitCode.
func WriteStubEngine(t *testing.T, exitCode int) *StubEngine {
	t.Helper()

	dir := t.TempDir()
	stub := &StubEngine{
		Path:    filepath.Join(dir, "drrun"),
		LogPath: filepath.Join(dir, "invocations.log"),
	}
	script := []byte(fmt.Sprintf(stubEngineScript, stub.LogPath, exitCode))
	require.NoError(t, os.WriteFile(stub.Path, script, 0o755))
	return stub
}

// Invocations returns the logged argument lines, or nil if the stub never ran.
func (s *StubEngine) Invocations(t *testing.T) []string {
	t.Helper()

	data, err := os.ReadFile(s.LogPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
