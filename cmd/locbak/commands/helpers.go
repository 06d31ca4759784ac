package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/cmd"
	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/logging"
	"github.com/thoreinstein/locbak/internal/paths"
)

// project bundles what every backup command needs.
type project struct {
	base   string
	dryRun bool
	opts   []backup.Option
}

// resolveProject turns the loaded config into a project base directory and
// the backup options shared by all commands.
func resolveProject(c *cobra.Command) (*project, error) {
	base, err := paths.ProjectBaseDir(cfg.Project)
	if err != nil {
		if errors.Is(err, paths.ErrProjectNotFound) {
			return nil, errors.NewUserError(err, "Check the --project flag or the project config key")
		}
		return nil, errors.NewSystemError(err, "")
	}

	return &project{
		base:   base,
		dryRun: cfg.DryRun,
		opts: []backup.Option{
			backup.WithDryRun(cfg.DryRun),
			backup.WithLogger(logger(c)),
			backup.WithBackupDirName(cfg.BackupDir),
		},
	}, nil
}

func logger(c *cobra.Command) *slog.Logger {
	if c == nil {
		return slog.Default()
	}
	return logging.FromContext(c.Context())
}

func version() string {
	return cmd.Version
}

// palette colors CLI output when w is a color-capable terminal.
type palette struct {
	bold   *color.Color
	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	gray   *color.Color
}

func newPalette(w io.Writer) *palette {
	p := &palette{
		bold:   color.New(color.Bold),
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		gray:   color.New(color.FgHiBlack),
	}

	enabled := logging.SupportsColor(w)
	for _, c := range []*color.Color{p.bold, p.cyan, p.green, p.yellow, p.red, p.gray} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// plural returns "n word" with an s appended when n != 1.
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// dryRunNote prefixes output lines in dry-run mode.
func dryRunNote(p *palette, dryRun bool) string {
	if !dryRun {
		return ""
	}
	return p.yellow.Sprint("[dry run] ")
}
