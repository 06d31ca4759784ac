package backup

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/paths"
)

// settings is shared by Session, Writer, Restorer and Catalog.
type settings struct {
	fs      afero.Fs
	dryRun  bool
	logger  *slog.Logger
	now     func() time.Time
	dirName string
}

// Option configures a backup component.
type Option func(*settings)

// WithFs sets the filesystem. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *settings) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithDryRun disables every filesystem side effect.
func WithDryRun(dryRun bool) Option {
	return func(s *settings) {
		s.dryRun = dryRun
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used to name archives.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBackupDirName sets the archive directory name relative to the project
// base directory. Defaults to paths.DefaultBackupDirName.
func WithBackupDirName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.dirName = name
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		fs:      afero.NewOsFs(),
		logger:  slog.Default(),
		now:     time.Now,
		dirName: paths.DefaultBackupDirName,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
