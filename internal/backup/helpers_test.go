package backup

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/locbak/internal/logging"
	"github.com/thoreinstein/locbak/internal/paths"
)

const projectDir = "/proj"

var archiveDir = filepath.Join(projectDir, paths.DefaultBackupDirName)

// newProject returns an in-memory filesystem holding files under projectDir.
func newProject(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(projectDir, 0o755))
	for name, content := range files {
		writeFile(t, fs, name, content)
	}
	return fs
}

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	path := filepath.Join(projectDir, filepath.FromSlash(name))
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, filepath.Join(projectDir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func clockAt(ts string) func() time.Time {
	t, err := time.ParseInLocation(time.DateTime, ts, time.UTC)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func testOptions(t *testing.T, fs afero.Fs, extra ...Option) []Option {
	return append([]Option{WithFs(fs), WithLogger(logging.ForTest(t))}, extra...)
}

type archivedEntry struct {
	data  string
	stamp string
}

// readArchive returns the entries of the zip at path keyed by name.
func readArchive(t *testing.T, fs afero.Fs, path string) (map[string]archivedEntry, []string) {
	t.Helper()

	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)

	zr, err := zip.NewReader(f, info.Size())
	require.NoError(t, err)

	entries := make(map[string]archivedEntry)
	var order []string
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		entries[zf.Name] = archivedEntry{data: string(data), stamp: zf.Comment}
		order = append(order, zf.Name)
	}
	return entries, order
}

// writeArchive writes a zip archive by hand, for archives a Session would
// never produce.
func writeArchive(t *testing.T, fs afero.Fs, name string, entries ...[3]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(archiveDir, 0o755))

	f, err := fs.Create(filepath.Join(archiveDir, name))
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e[0], Comment: e[2], Method: zip.Deflate})
		require.NoError(t, err)
		_, err = io.WriteString(w, e[1])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func dirExists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.DirExists(fs, path)
	require.NoError(t, err)
	return ok
}
