// Package backup protects files while a bulk rewriting tool mutates them in
// place, and undoes a run on request.
//
// # Archives
//
// Each run writes one zip archive into the project's backup directory:
//
//	<base>/.LocalizerBackup/
//	├── backup2026-01-23T10-07-12.zip
//	└── backup2026-01-23T10-07-12_001.zip
//
// Names embed the creation time to the second, plus a sequence suffix for
// archives created within the same second, so sorting names sorts archives
// chronologically. Entries are named by their slash-separated path relative
// to the project base directory. Each entry's zip comment holds its stamp.
//
// # Writing
//
// A [Writer] owns a [Session], which creates the archive on first use:
//
//	err := backup.Run(base, func(w *backup.Writer) error {
//	    return w.WriteWithBackup(path, rewritten)
//	})
//
// [Writer.WriteWithBackup] skips files that already hold the new content.
// Otherwise it archives the current bytes with a stamp of the fingerprint of
// the new content, then overwrites the file. [Writer.BackupOnly] archives the
// current bytes with a stamp of their own fingerprint.
// [Writer.RefreshFingerprint] moves an existing entry's stamp to the live
// file content.
//
// An archive holds one entry per path. The first snapshot of a path wins;
// later calls for the same path only update its stamp.
//
// # Restoring
//
// [Restorer.Restore] reads only the latest archive. A target that is missing
// is restored. A target whose fingerprint differs from the stamp was edited
// after the tool ran and is skipped with [ErrRestoreConflict].
//
// # Dry Run
//
// [WithDryRun] turns every operation into a filesystem no-op. Restore and
// prune still report what they would do.
package backup
