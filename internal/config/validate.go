package config

import (
	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/paths"
)

// Validation errors for configuration fields.
var (
	// ErrUnsupportedVersion indicates the version field is not CurrentVersion.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrNegativeRetention indicates retention is below zero.
	ErrNegativeRetention = errors.New("retention must be >= 0")

	// ErrInvalidLogFormat indicates an unknown log_format value.
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != CurrentVersion {
		errs = append(errs, errors.Wrapf(ErrUnsupportedVersion, "%d", cfg.Version))
	}

	if cfg.Retention < 0 {
		errs = append(errs, ErrNegativeRetention)
	}

	if cfg.BackupDir != "" {
		if err := paths.ValidateBackupDirName(cfg.BackupDir); err != nil {
			errs = append(errs, &FieldError{Field: KeyBackupDir, Value: cfg.BackupDir, Err: err})
		}
	}

	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, &FieldError{Field: KeyLogFormat, Value: cfg.LogFormat, Err: ErrInvalidLogFormat})
	}

	return errs
}

// FieldError represents an error for a specific config field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
