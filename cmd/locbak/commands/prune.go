package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", backup.DefaultRetentionCount,
		"Number of archives to retain (default from the retention config key)")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old archives",
	Long: `Remove archives beyond the retention count, oldest first.

Restore only ever uses the newest archive, so older ones are kept purely for
manual recovery.`,
	Example: `  # Keep the configured number of archives (default 5)
  locbak prune

  # Keep only the newest archive
  locbak prune --keep 1

  # Show what would be removed
  locbak prune --keep 0 --dry-run

  See Also:
    locbak list - List available archives`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func runPrune(c *cobra.Command, _ []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}

	keep := cfg.Retention
	if c.Flags().Changed("keep") {
		keep = pruneKeep
	}
	return runPruneWithWriter(c.OutOrStdout(), p, keep)
}

func runPruneWithWriter(w io.Writer, p *project, keep int) error {
	if keep < 0 {
		return errors.NewUserError(errors.New("--keep must be non-negative"), "")
	}

	catalog, err := backup.NewCatalog(p.base, p.opts...)
	if err != nil {
		return errors.NewUserError(err, "Check the backup_dir config key")
	}

	removed, err := catalog.Prune(keep)
	if err != nil {
		return errors.Wrap(err, "pruning archives")
	}

	pal := newPalette(w)
	if len(removed) == 0 {
		fmt.Fprintln(w, "No archives to prune")
		return nil
	}

	verb := "removed"
	if p.dryRun {
		verb = "would remove"
	}
	for _, a := range removed {
		fmt.Fprintf(w, "%s%s %s\n", dryRunNote(pal, p.dryRun), pal.green.Sprint("✓"), a.Name)
	}
	fmt.Fprintf(w, "\nTotal: %s %s\n", verb, plural(len(removed), "archive"))

	return nil
}
