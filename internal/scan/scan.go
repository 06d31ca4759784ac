// Package scan expands file patterns such as "Pages/*.razor" into the files
// they match.
package scan

import (
	"io/fs"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/errors"
)

// Options control pattern expansion.
type Options struct {
	// Recursive also matches files in subdirectories of the pattern's directory.
	Recursive bool

	// Exclude lists directories that are never entered. A pattern whose
	// search root lies inside one of them matches nothing.
	Exclude []string
}

// Files calls fn for each regular file matching pattern, in lexical order.
//
// The directory part of pattern is the search root and the final element is
// a glob matched against file names (*, ?, [a-z] and {a,b} are supported).
// A pattern naming an existing directory matches every file in it.
// Walking stops at the first error returned by fn.
func Files(fsys afero.Fs, pattern string, opts Options, fn func(path string) error) error {
	if pattern == "" {
		return errors.New("pattern is required")
	}

	clean := filepath.Clean(pattern)
	root, name := filepath.Dir(clean), filepath.Base(clean)
	if isDir, _ := afero.IsDir(fsys, clean); isDir {
		root, name = clean, "*"
	}

	g, err := glob.Compile(name)
	if err != nil {
		return errors.Wrapf(err, "invalid pattern %q", name)
	}

	if _, err := fsys.Stat(root); err != nil {
		return errors.Wrapf(err, "scanning %s", root)
	}

	if opts.excluded(root) {
		return nil
	}

	return afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || opts.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || !g.Match(info.Name()) {
			return nil
		}
		return fn(path)
	})
}

// excluded reports whether path is an excluded directory or lies inside one.
func (o Options) excluded(path string) bool {
	for _, dir := range o.Exclude {
		rel, err := filepath.Rel(filepath.Clean(dir), path)
		if err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}

// List returns the files matching pattern.
func List(fsys afero.Fs, pattern string, opts Options) ([]string, error) {
	var files []string
	err := Files(fsys, pattern, opts, func(path string) error {
		files = append(files, path)
		return nil
	})
	return files, err
}
