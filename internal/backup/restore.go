package backup

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/fingerprint"
	"github.com/thoreinstein/locbak/internal/paths"
	"github.com/thoreinstein/locbak/pkg/fileutil"
)

// Restorer undoes the most recent run by extracting the latest archive.
type Restorer struct {
	fs      afero.Fs
	base    string
	dryRun  bool
	logger  *slog.Logger
	catalog *Catalog
}

// NewRestorer returns a Restorer for the project rooted at base.
func NewRestorer(base string, opts ...Option) (*Restorer, error) {
	s := newSettings(opts)

	catalog, err := NewCatalog(base, opts...)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", base)
	}

	return &Restorer{
		fs:      s.fs,
		base:    abs,
		dryRun:  s.dryRun,
		logger:  s.logger,
		catalog: catalog,
	}, nil
}

// Restore extracts the entries of the latest archive.
//
// A missing target is always restored. An existing target is restored only
// if its fingerprint equals the entry's stamp; otherwise it is skipped as a
// conflict. Entries are independent: a failure is recorded and the rest
// are still processed, and Restore then returns ErrRestoreIncomplete along
// with the report.
//
// When there is no archive the report is empty and the error is nil.
func (r *Restorer) Restore() (*RestoreReport, error) {
	report := &RestoreReport{DryRun: r.dryRun}

	latest, err := r.catalog.Latest()
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			r.logger.Warn("no backup found", "dir", r.catalog.Dir())
			return report, nil
		}
		return nil, err
	}
	report.Archive = latest.Path

	r.logger.Info("restoring", "archive", latest.Name)

	err = r.catalog.withReader(latest, func(zr *zip.Reader) error {
		for _, f := range lastByName(zr.File) {
			r.restoreEntry(f, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if n := len(report.Failed); n > 0 {
		return report, errors.Wrapf(ErrRestoreIncomplete, "%d of %d entries failed",
			n, n+len(report.Restored)+len(report.Skipped))
	}
	return report, nil
}

func (r *Restorer) restoreEntry(f *zip.File, report *RestoreReport) {
	fail := func(err error) {
		r.logger.Error("restore failed", "path", f.Name, "error", err)
		report.Failed = append(report.Failed, FailedEntry{Path: f.Name, Err: err})
	}

	target, err := paths.Resolve(r.base, f.Name)
	if err != nil {
		fail(err)
		return
	}

	info, err := r.fs.Stat(target)
	switch {
	case err == nil:
		if info.IsDir() {
			fail(errors.Wrapf(paths.ErrInvalidPath, "%s is a directory", target))
			return
		}
		live, err := fingerprint.File(r.fs, target)
		if err != nil {
			fail(err)
			return
		}
		if live != f.Comment {
			r.logger.Info("skipping file modified since backup", "path", f.Name)
			report.Skipped = append(report.Skipped, SkippedEntry{Path: f.Name, Reason: ErrRestoreConflict})
			return
		}
	case errors.Is(err, fs.ErrNotExist):
		// Missing targets are always safe to restore
	default:
		fail(errors.Wrapf(err, "stat %s", target))
		return
	}

	if r.dryRun {
		r.logger.Info("dry run: would restore", "path", f.Name)
		report.Restored = append(report.Restored, f.Name)
		return
	}

	if err := r.extract(f, target); err != nil {
		fail(err)
		return
	}

	r.logger.Info("restored", "path", f.Name)
	report.Restored = append(report.Restored, f.Name)
}

func (r *Restorer) extract(f *zip.File, target string) error {
	if err := r.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", target)
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening entry %s", f.Name)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = fileutil.DefaultFilePerm
	}

	if err := fileutil.AtomicWriteReader(r.fs, target, rc, mode); err != nil {
		return errors.Wrapf(err, "extracting %s", f.Name)
	}
	return nil
}

// lastByName drops directory entries and all but the last occurrence of
// each name, keeping archive order.
func lastByName(files []*zip.File) []*zip.File {
	last := make(map[string]int, len(files))
	for i, f := range files {
		last[f.Name] = i
	}

	out := make([]*zip.File, 0, len(last))
	for i, f := range files {
		if last[f.Name] != i || strings.HasSuffix(f.Name, "/") {
			continue
		}
		out = append(out, f)
	}
	return out
}
