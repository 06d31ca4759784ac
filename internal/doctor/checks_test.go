package doctor

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/logging"
)

const projectDir = "/proj"

var backupDir = filepath.Join(projectDir, ".LocalizerBackup")

func options(t *testing.T, fs afero.Fs, extra ...backup.Option) []backup.Option {
	return append([]backup.Option{backup.WithFs(fs), backup.WithLogger(logging.ForTest(t))}, extra...)
}

// makeArchives runs one write session per timestamp, each archiving a.txt.
func makeArchives(t *testing.T, fs afero.Fs, stamps ...string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(projectDir, 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(projectDir, "a.txt"), []byte("start"), 0o644))

	for i, ts := range stamps {
		now, err := time.ParseInLocation(time.DateTime, ts, time.UTC)
		require.NoError(t, err)

		err = backup.Run(projectDir, func(w *backup.Writer) error {
			return w.WriteWithBackup("a.txt", []byte{byte('a' + i)})
		}, options(t, fs, backup.WithClock(func() time.Time { return now }))...)
		require.NoError(t, err)
	}
}

func newCatalog(t *testing.T, fs afero.Fs, extra ...backup.Option) *backup.Catalog {
	t.Helper()
	c, err := backup.NewCatalog(projectDir, options(t, fs, extra...)...)
	require.NoError(t, err)
	return c
}

func TestConfigCheck(t *testing.T) {
	tests := []struct {
		name   string
		source string
		err    error
		want   Severity
	}{
		{"loaded", "/home/u/.config/locbak/locbak.yaml", nil, SeverityPass},
		{"defaults", "", nil, SeverityInfo},
		{"broken", "locbak.yaml", errors.New("yaml: line 2"), SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewConfigCheck(tt.source, tt.err).Run()
			assert.Equal(t, tt.want, result.Status, result.Message)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), result.Details["error"])
				assert.NotEmpty(t, result.FixHint)
			}
		})
	}
}

func TestBackupDirCheck(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		result := NewBackupDirCheck(afero.NewMemMapFs(), backupDir).Run()
		assert.Equal(t, SeverityInfo, result.Status)
	})

	t.Run("file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, backupDir, []byte("x"), 0o644))

		result := NewBackupDirCheck(fs, backupDir).Run()
		assert.Equal(t, SeverityError, result.Status)
	})

	t.Run("writable", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll(backupDir, 0o755))

		check := NewBackupDirCheck(fs, backupDir)
		result := check.Run()
		assert.Equal(t, SeverityPass, result.Status, result.Message)
		assert.False(t, check.CanFix())

		entries, err := afero.ReadDir(fs, backupDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file should be removed")
	})

	t.Run("read-only", func(t *testing.T) {
		base := afero.NewMemMapFs()
		require.NoError(t, base.MkdirAll(backupDir, 0o755))

		result := NewBackupDirCheck(afero.NewReadOnlyFs(base), backupDir).Run()
		assert.Equal(t, SeverityWarning, result.Status)
		assert.False(t, result.Fixable)
	})
}

func TestBackupDirCheck_WorldWritable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Unix permissions only")
	}

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(backupDir, 0o755))
	require.NoError(t, fs.Chmod(backupDir, 0o777))

	check := NewBackupDirCheck(fs, backupDir)
	result := check.Run()
	require.Equal(t, SeverityWarning, result.Status, result.Message)
	assert.True(t, result.Fixable)
	require.True(t, check.CanFix())

	fixes := check.Fix()
	require.Len(t, fixes, 1)
	assert.True(t, fixes[0].Fixed, fixes[0].Description)

	info, err := fs.Stat(backupDir)
	require.NoError(t, err)
	assert.Equal(t, secureDirPerm, info.Mode().Perm())

	assert.Equal(t, SeverityPass, check.Run().Status)
}

func TestArchiveCheck(t *testing.T) {
	t.Run("no archives", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		result := NewArchiveCheck(newCatalog(t, fs)).Run()
		assert.Equal(t, SeverityInfo, result.Status)
	})

	t.Run("healthy", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		makeArchives(t, fs, "2026-01-23 10:00:00", "2026-01-23 11:00:00")

		result := NewArchiveCheck(newCatalog(t, fs)).Run()
		assert.Equal(t, SeverityPass, result.Status, result.Message)
		assert.Contains(t, result.Message, "2 archive")
	})

	t.Run("broken latest", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		makeArchives(t, fs, "2026-01-23 10:00:00")
		require.NoError(t, afero.WriteFile(fs,
			filepath.Join(backupDir, "backup2026-01-24T00-00-00.zip"), []byte("not a zip"), 0o644))

		result := NewArchiveCheck(newCatalog(t, fs)).Run()
		assert.Equal(t, SeverityError, result.Status)
		assert.Contains(t, result.Details, "backup2026-01-24T00-00-00.zip")
	})

	t.Run("broken older", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		makeArchives(t, fs, "2026-01-23 10:00:00")
		require.NoError(t, afero.WriteFile(fs,
			filepath.Join(backupDir, "backup2026-01-22T00-00-00.zip"), []byte("not a zip"), 0o644))

		result := NewArchiveCheck(newCatalog(t, fs)).Run()
		assert.Equal(t, SeverityWarning, result.Status)
	})
}

func TestRetentionCheck(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeArchives(t, fs, "2026-01-23 10:00:00", "2026-01-23 11:00:00", "2026-01-23 12:00:00")

	check := NewRetentionCheck(newCatalog(t, fs), 1)
	result := check.Run()
	require.Equal(t, SeverityWarning, result.Status)
	assert.True(t, result.Fixable)
	require.True(t, check.CanFix())

	fixes := check.Fix()
	require.Len(t, fixes, 2)
	for _, f := range fixes {
		assert.True(t, f.Fixed)
	}
	assert.False(t, check.CanFix())

	archives, err := newCatalog(t, fs).List()
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "backup2026-01-23T12-00-00.zip", archives[0].Name)

	assert.Equal(t, SeverityPass, check.Run().Status)
}

func TestRetentionCheck_DryRunFix(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeArchives(t, fs, "2026-01-23 10:00:00", "2026-01-23 11:00:00")

	check := NewRetentionCheck(newCatalog(t, fs, backup.WithDryRun(true)), 1)
	check.Run()

	fixes := check.Fix()
	require.Len(t, fixes, 1)
	assert.False(t, fixes[0].Fixed)
	assert.Equal(t, "would remove", fixes[0].Description)

	archives, err := newCatalog(t, fs).List()
	require.NoError(t, err)
	assert.Len(t, archives, 2)
}

func TestRetentionCheck_NoArchives(t *testing.T) {
	check := NewRetentionCheck(newCatalog(t, afero.NewMemMapFs()), 5)
	assert.Equal(t, SeverityPass, check.Run().Status)
	assert.False(t, check.CanFix())
}
