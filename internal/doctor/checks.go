package doctor

import (
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
)

// ConfigCheck reports whether the configuration loaded cleanly.
type ConfigCheck struct {
	source string
	err    error
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck creates a check for a configuration loaded from source
// (empty when only defaults applied) with the given load error.
func NewConfigCheck(source string, err error) *ConfigCheck {
	return &ConfigCheck{source: source, err: err}
}

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string { return "config" }

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string { return "config" }

// Run executes the configuration check.
func (c *ConfigCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	switch {
	case c.err != nil:
		result.Status = SeverityError
		result.Message = "configuration is invalid"
		result.Details = map[string]any{"error": c.err.Error()}
		result.FixHint = `fix the file, or run "locbak config init --force"`
	case c.source == "":
		result.Status = SeverityInfo
		result.Message = "no config file found, using defaults"
	default:
		result.Status = SeverityPass
		result.Message = "loaded " + c.source
	}

	return result
}

// BackupDirCheck validates the backup directory of a project.
type BackupDirCheck struct {
	PermissionFixer

	fs  afero.Fs
	dir string
}

var (
	_ Check = (*BackupDirCheck)(nil)
	_ Fixer = (*BackupDirCheck)(nil)
)

// NewBackupDirCheck creates a check for the backup directory dir on fsys.
func NewBackupDirCheck(fsys afero.Fs, dir string) *BackupDirCheck {
	return &BackupDirCheck{
		PermissionFixer: PermissionFixer{fs: fsys},
		fs:              fsys,
		dir:             dir,
	}
}

// Name returns the unique identifier for this check.
func (c *BackupDirCheck) Name() string { return "backup-dir" }

// Category returns the grouping for this check.
func (c *BackupDirCheck) Category() string { return "filesystem" }

// Run executes the backup directory check.
func (c *BackupDirCheck) Run() *CheckResult {
	c.setIssues(nil)
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.dir},
	}

	info, err := c.fs.Stat(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		result.Status = SeverityInfo
		result.Message = "no backup directory yet"
		return result
	}
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot stat backup directory: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Status = SeverityError
		result.Message = "expected directory but found file"
		result.FixHint = "move " + c.dir + " out of the way"
		return result
	}

	result.Details["permissions"] = formatPermissions(info.Mode())

	if !c.isWritable() {
		result.Status = SeverityWarning
		result.Message = "backup directory is not writable"
		result.FixHint = "chmod u+w " + c.dir
		return result
	}

	// Unix permissions don't apply on Windows
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o002 != 0 {
		c.setIssues([]pathIssue{{Path: c.dir, Type: "directory", Fixable: true}})
		result.Status = SeverityWarning
		result.Message = "backup directory is world-writable"
		result.Fixable = true
		result.FixHint = fmt.Sprintf("chmod %04o %s", secureDirPerm, c.dir)
		return result
	}

	result.Status = SeverityPass
	result.Message = "backup directory is writable"
	return result
}

// isWritable tests the directory by creating and removing a temp file.
func (c *BackupDirCheck) isWritable() bool {
	f, err := afero.TempFile(c.fs, c.dir, ".locbak-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = c.fs.Remove(name)
	return true
}

// ArchiveCheck verifies every archive in the backup directory. Problems in
// the newest archive are errors because restore reads it; problems in older
// archives are warnings.
type ArchiveCheck struct {
	catalog *backup.Catalog
}

var _ Check = (*ArchiveCheck)(nil)

// NewArchiveCheck creates an archive integrity check.
func NewArchiveCheck(catalog *backup.Catalog) *ArchiveCheck {
	return &ArchiveCheck{catalog: catalog}
}

// Name returns the unique identifier for this check.
func (c *ArchiveCheck) Name() string { return "archives" }

// Category returns the grouping for this check.
func (c *ArchiveCheck) Category() string { return "archive" }

// Run executes the archive integrity check.
func (c *ArchiveCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	archives, err := c.catalog.List()
	if errors.Is(err, backup.ErrNoBackupsFound) {
		result.Status = SeverityInfo
		result.Message = "no archives to verify"
		return result
	}
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list archives: %v", err)
		return result
	}

	problems := make(map[string]any)
	latestBroken := false
	for i, a := range archives {
		issues, err := c.catalog.Verify(a.Name)
		if err != nil {
			issues = []backup.Issue{{Problem: err.Error()}}
		}
		if len(issues) == 0 {
			continue
		}
		problems[a.Name] = issues
		if i == 0 {
			latestBroken = true
		}
	}

	switch {
	case latestBroken:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("latest archive %s has problems", archives[0].Name)
		result.FixHint = "restore will skip or fail the affected entries"
	case len(problems) > 0:
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d older archive(s) have problems", len(problems))
		result.FixHint = "locbak prune removes old archives"
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d archive(s) verified", len(archives))
	}
	if len(problems) > 0 {
		result.Details = problems
	}

	return result
}

// RetentionCheck warns when more archives are kept than the configured
// retention. It can fix this by pruning.
type RetentionCheck struct {
	catalog *backup.Catalog
	keep    int
	excess  int
}

var (
	_ Check = (*RetentionCheck)(nil)
	_ Fixer = (*RetentionCheck)(nil)
)

// NewRetentionCheck creates a check that compares the archive count with keep.
func NewRetentionCheck(catalog *backup.Catalog, keep int) *RetentionCheck {
	return &RetentionCheck{catalog: catalog, keep: keep}
}

// Name returns the unique identifier for this check.
func (c *RetentionCheck) Name() string { return "retention" }

// Category returns the grouping for this check.
func (c *RetentionCheck) Category() string { return "archive" }

// Run executes the retention check.
func (c *RetentionCheck) Run() *CheckResult {
	c.excess = 0
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	archives, err := c.catalog.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list archives: %v", err)
		return result
	}

	if len(archives) <= c.keep {
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d of %d archive(s) kept", len(archives), c.keep)
		return result
	}

	c.excess = len(archives) - c.keep
	result.Status = SeverityWarning
	result.Message = fmt.Sprintf("%d archive(s) beyond retention of %d", c.excess, c.keep)
	result.Fixable = true
	result.FixHint = fmt.Sprintf("locbak prune --keep %d", c.keep)
	return result
}

// CanFix reports whether Run found archives beyond retention.
func (c *RetentionCheck) CanFix() bool {
	return c.excess > 0
}

// Fix prunes archives beyond retention.
func (c *RetentionCheck) Fix() []FixResult {
	removed, err := c.catalog.Prune(c.keep)
	if err != nil {
		return []FixResult{{
			Path:        c.catalog.Dir(),
			Description: "prune failed",
			Error:       err,
		}}
	}

	results := make([]FixResult, 0, len(removed))
	for _, a := range removed {
		r := FixResult{Path: a.Path, Fixed: true, Description: "removed"}
		if c.catalog.DryRun() {
			r.Fixed = false
			r.Description = "would remove"
		}
		results = append(results, r)
	}
	c.excess = 0
	return results
}

// formatPermissions formats a file mode as octal (e.g., "0755").
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}
