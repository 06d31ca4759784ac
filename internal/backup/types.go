package backup

import (
	"os"
	"time"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/paths"
)

// Default configuration values.
const (
	// DefaultRetentionCount is the default number of archives kept by Prune.
	DefaultRetentionCount = 5

	// ArchiveExt is the extension of backup archives.
	ArchiveExt = ".zip"

	// archivePrefix starts every archive name written by a Session.
	archivePrefix = "backup"

	// timestampLayout formats UTC times at second precision and sorts
	// lexicographically.
	timestampLayout = "2006-01-02T15-04-05"
)

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates the backup directory holds no archives.
	ErrNoBackupsFound = errors.New("no backup found")

	// ErrRestoreConflict indicates the target file has been modified since
	// the tool last wrote it. Entries skipped for this reason carry it.
	ErrRestoreConflict = errors.New("restore conflict")

	// ErrRestoreIncomplete indicates one or more entries failed to restore.
	ErrRestoreIncomplete = errors.New("restore incomplete")

	// ErrOutsideProject indicates a path is not below the project base directory.
	ErrOutsideProject = paths.ErrOutsideBase
)

// Archive describes one backup archive on disk.
type Archive struct {
	// Name is the file name, for example backup2026-01-23T10-07-12.zip.
	Name string `json:"name"`

	// Path is the full path of the archive.
	Path string `json:"path"`

	// Created is the timestamp embedded in the name. It is the modification
	// time for archives whose names do not follow the naming scheme.
	Created time.Time `json:"created"`

	// Seq disambiguates archives created within the same second.
	Seq int `json:"seq"`

	// ModTime is the filesystem modification time.
	ModTime time.Time `json:"mod_time"`

	Size int64 `json:"size"`
}

// Entry describes one file stored in an archive.
type Entry struct {
	// Name is the slash-separated path relative to the project base directory.
	Name string `json:"name"`

	// Stamp is the fingerprint restore compares against the live file.
	Stamp string `json:"stamp"`

	Size     uint64      `json:"size"`
	Mode     os.FileMode `json:"mode"`
	Modified time.Time   `json:"modified"`
}

// SkippedEntry is an entry restore left alone.
type SkippedEntry struct {
	Path   string `json:"path"`
	Reason error  `json:"-"`
}

// Issue is a problem Verify found with one archive entry.
type Issue struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

// FailedEntry is an entry restore could not apply.
type FailedEntry struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// RestoreReport summarizes a restore run.
type RestoreReport struct {
	// Archive is the archive restored from, empty when none was found.
	Archive string `json:"archive"`

	Restored []string       `json:"restored"`
	Skipped  []SkippedEntry `json:"skipped"`
	Failed   []FailedEntry  `json:"failed"`

	// DryRun reports that Restored lists what would have been written.
	DryRun bool `json:"dry_run"`
}

// Found reports whether an archive was selected.
func (r *RestoreReport) Found() bool {
	return r.Archive != ""
}
