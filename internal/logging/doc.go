// Package logging provides structured logging for the locbak CLI using slog.
//
// The package supports text and JSON output formats, configurable log
// levels (including [LevelTrace] below Debug), a colorized TTY handler and
// helpers for carrying a logger in a context.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  logging.LevelFromVerbosity(verbosity),
//		Format: logging.FormatText,
//	})
//	ctx = logging.NewContext(ctx, logger)
//	logging.FromContext(ctx).Info("restoring", "archive", name)
//
// # Testing
//
// Use [ForTest] to route log output through the testing framework:
//
//	logger := logging.ForTest(t)
package logging
