package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/scan"
)

var snapshotRecursive bool

func init() {
	snapshotCmd.Flags().BoolVarP(&snapshotRecursive, "recursive", "r", false,
		"Also match files in subdirectories")
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <pattern>...",
	Short: "Archive files without changing them",
	Long: `Archive the current content of every file matching the patterns into a
new archive. Files are not modified.

A pattern is a directory followed by a file glob, for example
"Pages/*.razor" or "*.{cs,razor}". Relative patterns are resolved against the
project directory. The backup directory itself is never included.`,
	Example: `  # Snapshot all Razor files in the project
  locbak snapshot --recursive '*.razor'

  # Snapshot two directories
  locbak snapshot 'Pages/*.razor' 'Shared/*.razor'

  See Also:
    locbak restore - Undo the most recent run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSnapshot,
}

func runSnapshot(c *cobra.Command, args []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}
	return runSnapshotWithWriter(c.OutOrStdout(), afero.NewOsFs(), p, args, snapshotRecursive)
}

func runSnapshotWithWriter(w io.Writer, fs afero.Fs, p *project, patterns []string, recursive bool) error {
	opts := append([]backup.Option{backup.WithFs(fs)}, p.opts...)

	var count int
	var archive string
	err := backup.Run(p.base, func(bw *backup.Writer) error {
		scanOpts := scan.Options{
			Recursive: recursive,
			Exclude:   []string{bw.BackupDir()},
		}
		for _, pattern := range patterns {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(p.base, pattern)
			}
			err := scan.Files(fs, pattern, scanOpts, func(path string) error {
				count++
				return bw.BackupOnly(path)
			})
			if err != nil {
				return errors.Wrapf(err, "snapshot %s", pattern)
			}
		}
		archive = bw.Archive()
		return nil
	}, opts...)
	if err != nil {
		return err
	}

	pal := newPalette(w)
	switch {
	case count == 0:
		fmt.Fprintln(w, "No files matched")
	case p.dryRun:
		fmt.Fprintf(w, "%sWould archive %s\n", dryRunNote(pal, true), plural(count, "file"))
	default:
		fmt.Fprintf(w, "%s Archived %s into %s\n", pal.green.Sprint("✓"), plural(count, "file"), archive)
	}
	return nil
}
