// Package errors provides error handling conventions for the locbak CLI.
//
// The package wraps github.com/cockroachdb/errors so that every error created
// or annotated in locbak carries a stack trace, and defines an ExitError type
// for CLI exit code handling with exit code constants following standard
// Unix conventions.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [Is]:
//
//	if errors.Is(err, lberrors.ErrNotFound) {
//	    // handle not found case
//	}
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, permissions, etc.)
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional
// suggestion. Use [ExitCode] to map any error to the process exit status:
//
//	err := lberrors.NewUserError(lberrors.ErrInvalidConfig, "Check your config file")
//	os.Exit(lberrors.ExitCode(err))
package errors
