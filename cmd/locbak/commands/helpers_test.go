package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/logging"
)

// newTestProject creates a project directory holding files and returns it
// with options that log to the test.
func newTestProject(t *testing.T, files map[string]string, opts ...backup.Option) *project {
	t.Helper()

	base := t.TempDir()
	for name, content := range files {
		writeTestFile(t, base, name, content)
	}

	return &project{
		base: base,
		opts: append([]backup.Option{backup.WithLogger(logging.ForTest(t))}, opts...),
	}
}

func writeTestFile(t *testing.T, base, name, content string) {
	t.Helper()
	path := filepath.Join(base, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, base, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// withFlag sets a package-level flag variable for the duration of a test.
func withFlag[T any](t *testing.T, flag *T, value T) {
	t.Helper()
	orig := *flag
	*flag = value
	t.Cleanup(func() { *flag = orig })
}
