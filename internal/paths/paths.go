package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/thoreinstein/locbak/internal/errors"
)

// AppName is used for the config directory and config file names.
const AppName = "locbak"

// DefaultBackupDirName is the hidden directory, relative to the project base
// directory, that holds backup archives.
const DefaultBackupDirName = ".LocalizerBackup"

// ConfigDirEnv overrides the config directory when set.
const ConfigDirEnv = "LOCBAK_CONFIG_DIR"

// Sentinel errors for path resolution.
var (
	// ErrProjectNotFound indicates the configured project path does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")

	// ErrOutsideBase indicates a path resolves outside the project base directory.
	ErrOutsideBase = errors.New("path is outside the project base directory")
)

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigDir returns the locbak config directory: $LOCBAK_CONFIG_DIR if set,
// otherwise <ConfigHome>/locbak.
func ConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return filepath.Join(ConfigHome(), AppName)
}

// ProjectBaseDir resolves the base directory for a project.
// An empty project means the working directory. A project file (for example
// a .csproj) resolves to its parent directory, a directory to itself.
func ProjectBaseDir(project string) (string, error) {
	if project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "resolving working directory")
		}
		return wd, nil
	}

	abs, err := filepath.Abs(project)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", project)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrProjectNotFound, "%s", project)
		}
		return "", errors.Wrapf(err, "stat %s", project)
	}

	if info.IsDir() {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}

// BackupDir joins the backup directory name onto base.
// name must be relative and stay inside base; empty selects DefaultBackupDirName.
func BackupDir(base, name string) (string, error) {
	if name == "" {
		name = DefaultBackupDirName
	}
	if err := ValidateBackupDirName(name); err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}

// ValidateBackupDirName checks that name is a relative path that stays
// inside the directory it is joined to.
func ValidateBackupDirName(name string) error {
	if filepath.IsAbs(name) {
		return errors.Wrapf(ErrInvalidPath, "backup dir %q must be relative", name)
	}
	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.Wrapf(ErrInvalidPath, "backup dir %q must be inside the project", name)
	}
	return nil
}

// Rel returns path relative to base using forward slashes, the form stored
// in archive entry names. Both paths are made absolute first.
// Returns ErrOutsideBase if path is not below base.
func Rel(base, path string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", base)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", path)
	}

	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", errors.Wrapf(ErrOutsideBase, "%s", path)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrOutsideBase, "%s", path)
	}
	return filepath.ToSlash(rel), nil
}

// Resolve is the inverse of Rel: it maps a slash-separated entry name back
// to a path under base. Names that are absolute or escape base return
// ErrOutsideBase.
func Resolve(base, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) {
		return "", errors.Wrapf(ErrOutsideBase, "%q", name)
	}
	full := filepath.Join(base, filepath.FromSlash(name))
	if _, err := Rel(base, full); err != nil {
		return "", err
	}
	return full, nil
}
