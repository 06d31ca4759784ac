package backup

import (
	"bytes"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/fingerprint"
	"github.com/thoreinstein/locbak/internal/paths"
	"github.com/thoreinstein/locbak/pkg/fileutil"
)

// Writer decides per file whether to skip, snapshot or overwrite, using
// fingerprints, and records snapshots in a Session.
//
// Every method returns nil without touching the filesystem when the Writer
// was built with WithDryRun(true).
type Writer struct {
	fs      afero.Fs
	base    string
	dryRun  bool
	logger  *slog.Logger
	session *Session
}

// NewWriter returns a Writer for the project rooted at base.
func NewWriter(base string, opts ...Option) (*Writer, error) {
	s := newSettings(opts)

	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", base)
	}
	dir, err := paths.BackupDir(abs, s.dirName)
	if err != nil {
		return nil, err
	}

	return &Writer{
		fs:      s.fs,
		base:    abs,
		dryRun:  s.dryRun,
		logger:  s.logger,
		session: NewSession(dir, opts...),
	}, nil
}

// Run creates a Writer, passes it to fn and closes it on every exit path,
// panics included. The close error is joined with fn's error.
func Run(base string, fn func(*Writer) error, opts ...Option) (err error) {
	w, err := NewWriter(base, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	return fn(w)
}

// BaseDir returns the project base directory.
func (w *Writer) BaseDir() string {
	return w.base
}

// BackupDir returns the directory archives are written to.
func (w *Writer) BackupDir() string {
	return w.session.dir
}

// DryRun reports whether the Writer suppresses side effects.
func (w *Writer) DryRun() bool {
	return w.dryRun
}

// Archive returns the path of the archive being written, or "".
func (w *Writer) Archive() string {
	return w.session.Path()
}

// Close finalizes the current archive. Later writes start a new one.
func (w *Writer) Close() error {
	return w.session.Close()
}

// WriteWithBackup replaces the file at path with content.
//
// If the file already holds exactly content nothing happens. Otherwise its
// current bytes are archived with a stamp of fingerprint(content), the hash
// the file is about to have, and then the file is overwritten. A missing
// file is created without an archive entry.
func (w *Writer) WriteWithBackup(path string, content []byte) error {
	if w.dryRun {
		w.logger.Debug("dry run: not writing", "path", path)
		return nil
	}

	path, name, err := w.target(path)
	if err != nil {
		return err
	}

	want := fingerprint.Bytes(content)
	mode := fileutil.DefaultFilePerm

	info, err := w.fs.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return errors.Wrapf(paths.ErrInvalidPath, "%s is a directory", path)
		}
		mode = info.Mode().Perm()

		current, err := afero.ReadFile(w.fs, path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		if fingerprint.Bytes(current) == want {
			w.logger.Debug("content unchanged, skipping", "path", path)
			return nil
		}

		if _, _, err := w.session.Stage(name, bytes.NewReader(current), info); err != nil {
			return err
		}
		w.session.SetStamp(name, want)

	case errors.Is(err, fs.ErrNotExist):
		if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errors.Wrapf(err, "creating directory for %s", path)
		}

	default:
		return errors.Wrapf(err, "stat %s", path)
	}

	if err := fileutil.AtomicWriteFile(w.fs, path, content, mode); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	w.logger.Info("wrote file", "path", name)
	return nil
}

// BackupOnly archives the current bytes of path with a stamp of their own
// fingerprint. A missing file is ignored.
func (w *Writer) BackupOnly(path string) error {
	if w.dryRun {
		w.logger.Debug("dry run: not backing up", "path", path)
		return nil
	}

	path, name, err := w.target(path)
	if err != nil {
		return err
	}

	f, err := w.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return errors.Wrapf(paths.ErrInvalidPath, "%s is a directory", path)
	}

	digest, staged, err := w.session.Stage(name, f, info)
	if err != nil {
		return err
	}
	if !staged {
		// Keep the first snapshot, move the stamp to the live content.
		if digest, err = fingerprint.Reader(f); err != nil {
			return errors.Wrapf(err, "hashing %s", path)
		}
	}
	w.session.SetStamp(name, digest)

	w.logger.Debug("backed up file", "path", name, "stamp", digest)
	return nil
}

// RefreshFingerprint recomputes the stamp of path's entry in the current
// archive from the live file, leaving the archived bytes untouched.
// It does nothing when the current archive has no entry for path or the
// file is missing.
func (w *Writer) RefreshFingerprint(path string) error {
	if w.dryRun {
		w.logger.Debug("dry run: not refreshing fingerprint", "path", path)
		return nil
	}

	path, name, err := w.target(path)
	if err != nil {
		return err
	}
	if !w.session.Has(name) {
		return nil
	}

	stamp, err := fingerprint.File(w.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "hashing %s", path)
	}

	w.session.SetStamp(name, stamp)
	w.logger.Debug("refreshed fingerprint", "path", name, "stamp", stamp)
	return nil
}

// target resolves path against the project base and returns it with its
// archive entry name. Paths outside the base return ErrOutsideProject.
func (w *Writer) target(path string) (abs, name string, err error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.base, path)
	}
	name, err = paths.Rel(w.base, path)
	if err != nil {
		return "", "", err
	}
	return filepath.Clean(path), name, nil
}
