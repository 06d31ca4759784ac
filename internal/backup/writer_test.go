package backup

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/fingerprint"
)

func TestWriteWithBackup_SnapshotsPreviousContent(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "old"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)

	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("new")))
	assert.Equal(t, "new", readFile(t, fs, "a.txt"))

	archive := w.Archive()
	require.NotEmpty(t, archive)
	require.NoError(t, w.Close())

	entries, order := readArchive(t, fs, archive)
	require.Equal(t, []string{"a.txt"}, order)
	assert.Equal(t, "old", entries["a.txt"].data)
	assert.Equal(t, fingerprint.String("new"), entries["a.txt"].stamp)
}

func TestWriteWithBackup_UnchangedContent(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "same"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)
	defer w.Close()

	// Read-only proves no write is attempted
	w.fs = afero.NewReadOnlyFs(fs)
	w.session.fs = w.fs

	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("same")))
	assert.Empty(t, w.Archive())
	assert.False(t, dirExists(t, fs, archiveDir))
}

func TestWriteWithBackup_MissingFile(t *testing.T) {
	fs := newProject(t, nil)

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteWithBackup("/proj/Pages/New.razor", []byte("hello")))

	assert.Equal(t, "hello", readFile(t, fs, "Pages/New.razor"))
	assert.Empty(t, w.Archive(), "nothing to snapshot for a new file")
}

func TestWriteWithBackup_RelativePath(t *testing.T) {
	fs := newProject(t, map[string]string{"sub/a.txt": "old"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)

	require.NoError(t, w.WriteWithBackup("sub/a.txt", []byte("new")))
	assert.Equal(t, "new", readFile(t, fs, "sub/a.txt"))

	archive := w.Archive()
	require.NoError(t, w.Close())

	_, order := readArchive(t, fs, archive)
	assert.Equal(t, []string{"sub/a.txt"}, order)
}

func TestWriteWithBackup_PreservesMode(t *testing.T) {
	fs := newProject(t, nil)
	require.NoError(t, afero.WriteFile(fs, "/proj/run.sh", []byte("v1"), 0o755))

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteWithBackup("/proj/run.sh", []byte("v2")))

	info, err := fs.Stat("/proj/run.sh")
	require.NoError(t, err)
	assert.Equal(t, 0o755, int(info.Mode().Perm()))
}

func TestWriteWithBackup_OutsideProject(t *testing.T) {
	fs := newProject(t, nil)
	writeFile(t, fs, "../other/a.txt", "x")

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)
	defer w.Close()

	for _, path := range []string{"/other/a.txt", "../other/a.txt", "/proj"} {
		err := w.WriteWithBackup(path, []byte("y"))
		assert.True(t, errors.Is(err, ErrOutsideProject), "path %s: got %v", path, err)
	}
	assert.Equal(t, "x", readFile(t, fs, "../other/a.txt"))
}

func TestWriteWithBackup_FirstSnapshotWins(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "v1"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)

	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("v2")))
	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("v3")))
	assert.Equal(t, "v3", readFile(t, fs, "a.txt"))

	archive := w.Archive()
	require.NoError(t, w.Close())

	entries, order := readArchive(t, fs, archive)
	require.Len(t, order, 1)
	assert.Equal(t, "v1", entries["a.txt"].data)
	assert.Equal(t, fingerprint.String("v3"), entries["a.txt"].stamp)
}

func TestBackupOnly(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "keep", "b.txt": "other"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)

	require.NoError(t, w.BackupOnly("/proj/a.txt"))
	require.NoError(t, w.BackupOnly("/proj/missing.txt"))
	assert.Equal(t, "keep", readFile(t, fs, "a.txt"), "BackupOnly must not modify the file")

	archive := w.Archive()
	require.NoError(t, w.Close())

	entries, order := readArchive(t, fs, archive)
	require.Equal(t, []string{"a.txt"}, order)
	assert.Equal(t, "keep", entries["a.txt"].data)
	assert.Equal(t, fingerprint.String("keep"), entries["a.txt"].stamp)
}

func TestBackupOnly_ThenWrite(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "old"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)

	require.NoError(t, w.BackupOnly("/proj/a.txt"))
	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("new")))

	archive := w.Archive()
	require.NoError(t, w.Close())

	entries, order := readArchive(t, fs, archive)
	require.Len(t, order, 1)
	assert.Equal(t, "old", entries["a.txt"].data)
	assert.Equal(t, fingerprint.String("new"), entries["a.txt"].stamp)
}

func TestRefreshFingerprint(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "old"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)

	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("new")))

	// Out-of-band change
	writeFile(t, fs, "a.txt", "reformatted")
	require.NoError(t, w.RefreshFingerprint("/proj/a.txt"))

	archive := w.Archive()
	require.NoError(t, w.Close())

	entries, _ := readArchive(t, fs, archive)
	assert.Equal(t, "old", entries["a.txt"].data, "archived bytes are untouched")
	assert.Equal(t, fingerprint.String("reformatted"), entries["a.txt"].stamp)
}

func TestRefreshFingerprint_NoEntry(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "x"})

	w, err := NewWriter(projectDir, testOptions(t, fs)...)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.RefreshFingerprint("/proj/a.txt"))
	assert.Empty(t, w.Archive())
	assert.False(t, dirExists(t, fs, archiveDir))
}

func TestRefreshFingerprint_PreviousSessionOnly(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "old"})

	w, err := NewWriter(projectDir, testOptions(t, fs, WithClock(clockAt("2026-01-23 10:07:12")))...)
	require.NoError(t, err)

	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("new")))
	first := w.Archive()
	require.NoError(t, w.Close())

	// The entry belongs to a closed session, so there is nothing to refresh
	writeFile(t, fs, "a.txt", "edited")
	require.NoError(t, w.RefreshFingerprint("/proj/a.txt"))
	assert.Empty(t, w.Archive())

	entries, _ := readArchive(t, fs, first)
	assert.Equal(t, fingerprint.String("new"), entries["a.txt"].stamp)
}

func TestWriter_DryRun(t *testing.T) {
	mem := newProject(t, map[string]string{"a.txt": "old", "b.txt": "b"})
	ro := afero.NewReadOnlyFs(mem)

	w, err := NewWriter(projectDir, testOptions(t, ro, WithDryRun(true))...)
	require.NoError(t, err)
	assert.True(t, w.DryRun())

	for range 3 {
		require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("new")))
		require.NoError(t, w.WriteWithBackup("/proj/c.txt", []byte("created")))
		require.NoError(t, w.BackupOnly("/proj/b.txt"))
		require.NoError(t, w.RefreshFingerprint("/proj/a.txt"))
	}
	require.NoError(t, w.Close())

	assert.Empty(t, w.Archive())
	assert.False(t, dirExists(t, mem, archiveDir))
	assert.Equal(t, "old", readFile(t, mem, "a.txt"))

	exists, err := afero.Exists(mem, "/proj/c.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	fs := newProject(t, map[string]string{"a.txt": "old", "b.txt": "old"})

	w, err := NewWriter(projectDir, testOptions(t, fs, WithClock(clockAt("2026-01-23 10:07:12")))...)
	require.NoError(t, err)

	require.NoError(t, w.Close(), "close before any write")

	require.NoError(t, w.WriteWithBackup("/proj/a.txt", []byte("new")))
	first := w.Archive()
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	// Writing after close opens a fresh archive
	require.NoError(t, w.WriteWithBackup("/proj/b.txt", []byte("new")))
	second := w.Archive()
	require.NoError(t, w.Close())

	assert.NotEqual(t, first, second)
	assert.Equal(t, "backup2026-01-23T10-07-12.zip", filepath.Base(first))
	assert.Equal(t, "backup2026-01-23T10-07-12_001.zip", filepath.Base(second))

	entries, _ := readArchive(t, fs, second)
	assert.Contains(t, entries, "b.txt")
	assert.NotContains(t, entries, "a.txt")
}

func TestNewWriter_InvalidBackupDir(t *testing.T) {
	_, err := NewWriter(projectDir, WithFs(afero.NewMemMapFs()), WithBackupDirName("../escape"))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Run("closes on success", func(t *testing.T) {
		fs := newProject(t, map[string]string{"a.txt": "old"})

		var archive string
		err := Run(projectDir, func(w *Writer) error {
			if err := w.WriteWithBackup("/proj/a.txt", []byte("new")); err != nil {
				return err
			}
			archive = w.Archive()
			return nil
		}, testOptions(t, fs)...)
		require.NoError(t, err)

		// A finalized archive is readable
		entries, _ := readArchive(t, fs, archive)
		assert.Equal(t, "old", entries["a.txt"].data)
	})

	t.Run("closes on error", func(t *testing.T) {
		fs := newProject(t, map[string]string{"a.txt": "old"})
		boom := errors.New("boom")

		var archive string
		err := Run(projectDir, func(w *Writer) error {
			_ = w.WriteWithBackup("/proj/a.txt", []byte("new"))
			archive = w.Archive()
			return boom
		}, testOptions(t, fs)...)
		require.ErrorIs(t, err, boom)

		entries, _ := readArchive(t, fs, archive)
		assert.Equal(t, "old", entries["a.txt"].data)
	})

	t.Run("closes on panic", func(t *testing.T) {
		fs := newProject(t, map[string]string{"a.txt": "old"})

		var archive string
		assert.Panics(t, func() {
			_ = Run(projectDir, func(w *Writer) error {
				_ = w.WriteWithBackup("/proj/a.txt", []byte("new"))
				archive = w.Archive()
				panic("rewriter crashed")
			}, testOptions(t, fs)...)
		})

		entries, _ := readArchive(t, fs, archive)
		assert.Equal(t, "old", entries["a.txt"].data)
	})
}
