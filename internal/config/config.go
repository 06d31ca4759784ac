// Package config provides configuration management for locbak using Viper.
package config

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/paths"
)

// CurrentVersion is the only config file version understood by this build.
const CurrentVersion = 1

// DefaultRetention is the default number of archives kept by prune.
const DefaultRetention = 5

// Config keys, shared by viper lookups and flag bindings.
const (
	KeyVersion   = "version"
	KeyProject   = "project"
	KeyDryRun    = "dry_run"
	KeyBackupDir = "backup_dir"
	KeyRetention = "retention"
	KeyLogFormat = "log_format"
)

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version" toml:"version"`

	// Project is a project file or directory. Its base directory holds the
	// backup directory and anchors archive entry names.
	Project string `mapstructure:"project" yaml:"project,omitempty" toml:"project,omitempty"`

	// DryRun suppresses every filesystem side effect.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run" toml:"dry_run"`

	// BackupDir is the archive directory name relative to the project base.
	BackupDir string `mapstructure:"backup_dir" yaml:"backup_dir" toml:"backup_dir"`

	// Retention is the number of archives prune keeps.
	Retention int `mapstructure:"retention" yaml:"retention" toml:"retention"`

	LogFormat string `mapstructure:"log_format" yaml:"log_format" toml:"log_format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version:   CurrentVersion,
		BackupDir: paths.DefaultBackupDirName,
		Retention: DefaultRetention,
		LogFormat: "text",
	}
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
// It resets any previous Viper state.
func Init() {
	viper.Reset()

	// Config file settings. No explicit type so that any supported
	// extension (yaml, toml, json) is found.
	viper.SetConfigName(paths.AppName)

	// Search paths (in order of precedence)
	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	// Environment variable support: LOCBAK_DRY_RUN, LOCBAK_BACKUP_DIR, ...
	viper.SetEnvPrefix("LOCBAK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	d := Default()
	viper.SetDefault(KeyVersion, d.Version)
	viper.SetDefault(KeyProject, d.Project)
	viper.SetDefault(KeyDryRun, d.DryRun)
	viper.SetDefault(KeyBackupDir, d.BackupDir)
	viper.SetDefault(KeyRetention, d.Retention)
	viper.SetDefault(KeyLogFormat, d.LogFormat)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file and its extension
// selects the format. If path is empty, it searches the default locations
// and falls back to defaults when no file is found.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			viper.SetConfigType(ext)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// Implicit load without a file uses defaults
		case path != "" && isNotExist(err):
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}

	return &cfg, nil
}

// Used reports the config file Viper read, or "" when defaults are in use.
func Used() string {
	return viper.ConfigFileUsed()
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}
