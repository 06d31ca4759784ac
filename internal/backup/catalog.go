package backup

import (
	"cmp"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/fingerprint"
	"github.com/thoreinstein/locbak/internal/paths"
)

var archiveNameRe = regexp.MustCompile(`^` + archivePrefix + `(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2})(?:_(\d+))?\.zip$`)

// Catalog lists, inspects and prunes the archives of one project.
type Catalog struct {
	fs     afero.Fs
	dir    string
	dryRun bool
	logger *slog.Logger
}

// NewCatalog returns a Catalog for the project rooted at base.
func NewCatalog(base string, opts ...Option) (*Catalog, error) {
	s := newSettings(opts)

	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", base)
	}
	dir, err := paths.BackupDir(abs, s.dirName)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		fs:     s.fs,
		dir:    dir,
		dryRun: s.dryRun,
		logger: s.logger,
	}, nil
}

// Dir returns the backup directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// DryRun reports whether Prune only reports what it would remove.
func (c *Catalog) DryRun() bool {
	return c.dryRun
}

// List returns all archives, newest first.
// Returns ErrNoBackupsFound when the directory is missing or holds none.
func (c *Catalog) List() ([]Archive, error) {
	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	archives := make([]Archive, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(info.Name()), ArchiveExt) {
			continue
		}
		archives = append(archives, c.describe(info))
	}

	if len(archives) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(archives, func(a, b Archive) int {
		return compareArchives(b, a)
	})

	return archives, nil
}

// Latest returns the newest archive.
func (c *Catalog) Latest() (*Archive, error) {
	archives, err := c.List()
	if err != nil {
		return nil, err
	}
	return &archives[0], nil
}

// Get returns the archive called name.
func (c *Catalog) Get(name string) (*Archive, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return nil, errors.Wrapf(paths.ErrInvalidPath, "archive name %q", name)
	}

	info, err := c.fs.Stat(filepath.Join(c.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "archive %s not found", name)
		}
		return nil, errors.Wrapf(err, "stat archive %s", name)
	}

	a := c.describe(info)
	return &a, nil
}

// Entries returns the entries stored in the archive called name, in
// archive order.
func (c *Catalog) Entries(name string) ([]Entry, error) {
	a, err := c.Get(name)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = c.withReader(a, func(zr *zip.Reader) error {
		entries = make([]Entry, 0, len(zr.File))
		for _, f := range zr.File {
			if strings.HasSuffix(f.Name, "/") {
				continue
			}
			entries = append(entries, Entry{
				Name:     f.Name,
				Stamp:    f.Comment,
				Size:     f.UncompressedSize64,
				Mode:     f.Mode(),
				Modified: f.Modified,
			})
		}
		return nil
	})
	return entries, err
}

// Verify reads every entry of the archive called name and reports entries
// that restore could not use: unsafe names, missing or malformed stamps and
// content that fails its checksum. The error is reserved for archives that
// cannot be opened at all.
func (c *Catalog) Verify(name string) ([]Issue, error) {
	a, err := c.Get(name)
	if err != nil {
		return nil, err
	}

	var (
		issues  []Issue
		checked int
	)
	err = c.withReader(a, func(zr *zip.Reader) error {
		for _, f := range zr.File {
			if strings.HasSuffix(f.Name, "/") {
				continue
			}
			if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
				issues = append(issues, Issue{Path: f.Name, Problem: "unsafe entry name"})
				continue
			}
			checked++
			if !fingerprint.Valid(f.Comment) {
				issues = append(issues, Issue{Path: f.Name, Problem: "missing or malformed stamp"})
			}
			if err := readAll(f); err != nil {
				issues = append(issues, Issue{Path: f.Name, Problem: err.Error()})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("verified archive", "archive", a.Name, "entries", checked, "issues", len(issues))
	return issues, nil
}

func readAll(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(io.Discard, rc)
	return err
}

// Prune removes all but the newest keep archives and returns the ones
// removed. In dry-run mode it returns what would be removed.
func (c *Catalog) Prune(keep int) ([]Archive, error) {
	if keep < 0 {
		return nil, errors.New("keep must be non-negative")
	}

	archives, err := c.List()
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil, nil // Nothing to prune
		}
		return nil, err
	}
	if len(archives) <= keep {
		return nil, nil
	}

	// Already sorted newest first, remove everything beyond keep
	removed := archives[keep:]
	for _, a := range removed {
		if c.dryRun {
			c.logger.Info("dry run: would remove archive", "archive", a.Name)
			continue
		}
		if err := c.fs.Remove(a.Path); err != nil {
			return nil, errors.Wrapf(err, "removing archive %s", a.Name)
		}
		c.logger.Info("removed archive", "archive", a.Name)
	}

	return removed, nil
}

// withReader opens the archive and passes a zip reader to fn.
func (c *Catalog) withReader(a *Archive, fn func(*zip.Reader) error) error {
	f, err := c.fs.Open(a.Path)
	if err != nil {
		return errors.Wrapf(err, "opening archive %s", a.Name)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat archive %s", a.Name)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		if zr == nil {
			return errors.Wrapf(err, "reading archive %s", a.Name)
		}
		// Insecure entry names still yield a usable reader; each name is
		// checked again before it is extracted.
		c.logger.Warn("archive has unsafe entry names", "archive", a.Name, "error", err)
	}
	return fn(zr)
}

func (c *Catalog) describe(info fs.FileInfo) Archive {
	a := Archive{
		Name:    info.Name(),
		Path:    filepath.Join(c.dir, info.Name()),
		Created: info.ModTime(),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}

	if m := archiveNameRe.FindStringSubmatch(info.Name()); m != nil {
		if t, err := time.ParseInLocation(timestampLayout, m[1], time.UTC); err == nil {
			a.Created = t
		}
		if m[2] != "" {
			a.Seq, _ = strconv.Atoi(m[2])
		}
	}

	return a
}

// compareArchives orders by creation time, then sequence, then
// modification time, then name.
func compareArchives(a, b Archive) int {
	if c := a.Created.Compare(b.Created); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	if c := a.ModTime.Compare(b.ModTime); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}
