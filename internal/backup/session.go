package backup

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/fingerprint"
	"github.com/thoreinstein/locbak/internal/logging"
)

// maxSeq bounds the same-second suffix search.
const maxSeq = 999

// Session owns one archive for the lifetime of a run.
//
// The archive is created on the first Stage call and finalized by Close.
// Staging after Close starts a new archive. A Session is not safe for
// concurrent writers; the mutex only keeps open and close consistent.
type Session struct {
	fs     afero.Fs
	dir    string
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	file    afero.File
	zw      *zip.Writer
	path    string
	entries map[string]*zip.FileHeader
}

// NewSession returns a Session that writes archives into dir.
// Nothing is created until the first Stage.
func NewSession(dir string, opts ...Option) *Session {
	s := newSettings(opts)
	return &Session{
		fs:     s.fs,
		dir:    dir,
		now:    s.now,
		logger: s.logger,
	}
}

// Path returns the open archive's path, or "" when no archive is open.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Has reports whether the open archive has an entry named name.
func (s *Session) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Len returns the number of entries in the open archive.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stamp returns the stamp recorded for name in the open archive.
func (s *Session) Stamp(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fh, ok := s.entries[name]
	if !ok {
		return "", false
	}
	return fh.Comment, true
}

// Stage copies r into a new entry called name and returns the fingerprint
// of the copied bytes. info supplies the entry's mode and modification time.
//
// An archive holds one entry per name. If name is already staged, r is not
// read and staged is false.
func (s *Session) Stage(name string, r io.Reader, info os.FileInfo) (digest string, staged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return "", false, nil
	}

	if err := s.ensureOpen(); err != nil {
		return "", false, err
	}

	fh := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
	if info != nil {
		fh.Modified = info.ModTime()
		fh.SetMode(info.Mode())
	} else {
		fh.Modified = s.now()
	}

	w, err := s.zw.CreateHeader(fh)
	if err != nil {
		return "", false, errors.Wrapf(err, "creating archive entry %s", name)
	}

	h := fingerprint.NewHasher()
	if _, err := io.Copy(io.MultiWriter(w, h), r); err != nil {
		return "", false, errors.Wrapf(err, "archiving %s", name)
	}

	digest = h.Sum()
	fh.Comment = digest
	s.entries[name] = fh

	s.logger.Log(context.Background(), logging.LevelTrace, "staged entry", "archive", s.path, "entry", name)

	return digest, true, nil
}

// SetStamp replaces the stamp of an existing entry. The archived bytes are
// unchanged. It reports false when name is not staged in the open archive.
//
// Stamps are written with the central directory on Close, so they may be
// replaced any number of times before then.
func (s *Session) SetStamp(name, stamp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fh, ok := s.entries[name]
	if !ok {
		return false
	}
	fh.Comment = stamp
	return true
}

// Close finalizes the open archive. It is safe to call more than once and
// on a Session that never opened an archive.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.zw == nil {
		return nil
	}

	// Entries and the central directory only reach the file here. An
	// archive left open by a crash has no directory and cannot be read.
	zerr := s.zw.Close()
	var serr error
	if zerr == nil {
		serr = s.file.Sync()
	}
	ferr := s.file.Close()

	path, n := s.path, len(s.entries)
	s.zw, s.file, s.path, s.entries = nil, nil, "", nil

	if err := errors.Join(zerr, serr, ferr); err != nil {
		return errors.Wrapf(err, "closing archive %s", path)
	}

	s.logger.Info("archive closed", "archive", path, "entries", n)
	return nil
}

// ensureOpen creates the backup directory and a new archive.
// The caller must hold s.mu.
func (s *Session) ensureOpen() error {
	if s.zw != nil {
		return nil
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "creating backup directory")
	}

	ts := s.now().UTC().Format(timestampLayout)
	for seq := 0; seq <= maxSeq; seq++ {
		path := filepath.Join(s.dir, archiveName(ts, seq))

		f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return errors.Wrap(err, "creating archive")
		}

		s.file = f
		s.zw = zip.NewWriter(f)
		s.path = path
		s.entries = make(map[string]*zip.FileHeader)

		s.logger.Debug("archive opened", "archive", path)
		return nil
	}

	return errors.Newf("no free archive name for %s in %s", ts, s.dir)
}

// archiveName builds backup<ts>.zip, or backup<ts>_NNN.zip when seq > 0.
func archiveName(ts string, seq int) string {
	if seq == 0 {
		return archivePrefix + ts + ArchiveExt
	}
	return fmt.Sprintf("%s%s_%03d%s", archivePrefix, ts, seq, ArchiveExt)
}
