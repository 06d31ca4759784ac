package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
)

var restoreJSON bool

func init() {
	restoreCmd.Flags().BoolVar(&restoreJSON, "json", false, "Output the restore report as JSON")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Undo the most recent run",
	Long: `Restore files from the newest archive in the backup directory.

Files that no longer exist are always restored. A file that still exists is
restored only if its content is exactly what locbak last wrote; files that
were edited afterwards are skipped and reported.

Only the newest archive is used. Older archives are never merged in.`,
	Example: `  # Undo the last run
  locbak restore

  # Show what would be restored
  locbak restore --dry-run

  See Also:
    locbak list    - List available archives
    locbak inspect - Show the entries of an archive`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

// restoreOutput is the JSON form of a restore report.
type restoreOutput struct {
	Archive  string         `json:"archive"`
	DryRun   bool           `json:"dry_run"`
	Restored []string       `json:"restored"`
	Skipped  []restoreIssue `json:"skipped"`
	Failed   []restoreIssue `json:"failed"`
}

type restoreIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func runRestore(c *cobra.Command, _ []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}
	return runRestoreWithWriter(c.OutOrStdout(), p)
}

func runRestoreWithWriter(w io.Writer, p *project) error {
	r, err := backup.NewRestorer(p.base, p.opts...)
	if err != nil {
		return errors.NewUserError(err, "Check the backup_dir config key")
	}

	report, restoreErr := r.Restore()
	if report == nil {
		return errors.NewSystemError(restoreErr, "")
	}

	if restoreJSON {
		if err := writeRestoreJSON(w, report); err != nil {
			return err
		}
	} else {
		writeRestoreText(w, report)
	}

	if restoreErr != nil {
		return errors.NewSystemError(restoreErr, "Fix the failed entries and run restore again")
	}
	return nil
}

func writeRestoreText(w io.Writer, report *backup.RestoreReport) {
	pal := newPalette(w)
	note := dryRunNote(pal, report.DryRun)

	if !report.Found() {
		fmt.Fprintf(w, "%sNo backup found\n", note)
		return
	}

	fmt.Fprintf(w, "%sRestoring from %s\n", note, pal.cyan.Sprint(report.Archive))

	for _, path := range report.Restored {
		fmt.Fprintf(w, "  %s %s\n", pal.green.Sprint("✓"), path)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "  %s %s %s\n", pal.yellow.Sprint("-"), s.Path, pal.gray.Sprint("(modified since backup)"))
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  %s %s: %v\n", pal.red.Sprint("✗"), f.Path, f.Err)
	}

	verb := "Restored"
	if report.DryRun {
		verb = "Would restore"
	}
	fmt.Fprintf(w, "\n%s %s, skipped %d, failed %d\n",
		verb, plural(len(report.Restored), "file"), len(report.Skipped), len(report.Failed))
}

func writeRestoreJSON(w io.Writer, report *backup.RestoreReport) error {
	out := restoreOutput{
		Archive:  report.Archive,
		DryRun:   report.DryRun,
		Restored: report.Restored,
		Skipped:  make([]restoreIssue, 0, len(report.Skipped)),
		Failed:   make([]restoreIssue, 0, len(report.Failed)),
	}
	if out.Restored == nil {
		out.Restored = []string{}
	}
	for _, s := range report.Skipped {
		out.Skipped = append(out.Skipped, restoreIssue{Path: s.Path, Reason: s.Reason.Error()})
	}
	for _, f := range report.Failed {
		out.Failed = append(out.Failed, restoreIssue{Path: f.Path, Reason: f.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "encoding restore report")
}
