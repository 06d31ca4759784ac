package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/logging"
)

var (
	inspectJSON        bool
	inspectInteractive bool
)

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output in JSON format")
	inspectCmd.Flags().BoolVarP(&inspectInteractive, "interactive", "i", false,
		"Pick the archive with a fuzzy finder (default when run in a terminal without an argument)")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [archive]",
	Short: "Show the entries of an archive",
	Long: `Show the files stored in an archive together with their stamps.

The stamp is the fingerprint restore compares with the live file. Without an
argument the newest archive is shown, or, in a terminal, a fuzzy finder lets
you pick one.`,
	Example: `  # Inspect the archive restore would use
  locbak inspect

  # Inspect a specific archive
  locbak inspect backup2026-01-23T10-07-12.zip

  See Also:
    locbak list    - List available archives
    locbak restore - Undo the most recent run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

// archivePicker chooses one archive out of a list.
type archivePicker func(catalog *backup.Catalog, archives []backup.Archive) (*backup.Archive, error)

func runInspect(c *cobra.Command, args []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	var pick archivePicker
	if name == "" && (inspectInteractive || (!inspectJSON && logging.IsTTY(os.Stdin) && logging.IsTTY(c.OutOrStdout()))) {
		pick = fuzzyPick
	}
	return runInspectWithWriter(c.OutOrStdout(), p, name, pick)
}

func runInspectWithWriter(w io.Writer, p *project, name string, pick archivePicker) error {
	catalog, err := backup.NewCatalog(p.base, p.opts...)
	if err != nil {
		return errors.NewUserError(err, "Check the backup_dir config key")
	}

	var archive *backup.Archive
	switch {
	case name != "":
		archive, err = catalog.Get(name)
	case pick != nil:
		var archives []backup.Archive
		if archives, err = catalog.List(); err == nil {
			archive, err = pick(catalog, archives)
		}
	default:
		archive, err = catalog.Latest()
	}
	if err != nil {
		if errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.NewUserError(err, "Run 'locbak list' to see available archives")
		}
		return err
	}
	if archive == nil {
		// Picker aborted
		return nil
	}

	entries, err := catalog.Entries(archive.Name)
	if err != nil {
		return errors.Wrapf(err, "inspecting %s", archive.Name)
	}

	if inspectJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(entries), "encoding entries")
	}

	pal := newPalette(w)
	fmt.Fprintf(w, "%s %s\n", pal.cyan.Sprint("Archive:"), archive.Name)
	fmt.Fprintf(w, "%s %s\n\n", pal.cyan.Sprint("Created:"), archive.Created.Format(time.DateTime))

	if len(entries) == 0 {
		fmt.Fprintf(w, "  %s\n", pal.gray.Sprint("(empty archive)"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\t%s\t%s\n", pal.bold.Sprint("PATH"), pal.bold.Sprint("SIZE"), pal.bold.Sprint("STAMP"))
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", e.Name, formatSize(int64(e.Size)), pal.gray.Sprint(e.Stamp))
	}
	return errors.Wrap(tw.Flush(), "writing entries")
}

// fuzzyPick lets the user choose an archive, previewing its entries.
// It returns nil without error when the user aborts.
func fuzzyPick(catalog *backup.Catalog, archives []backup.Archive) (*backup.Archive, error) {
	idx, err := fuzzyfinder.Find(
		archives,
		func(i int) string {
			return archives[i].Name
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			entries, err := catalog.Entries(archives[i].Name)
			if err != nil {
				return fmt.Sprintf("Error: %v", err)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Created: %s\nEntries: %d\n\n", archives[i].Created.Format(time.DateTime), len(entries))
			for _, e := range entries {
				b.WriteString(e.Name)
				b.WriteByte('\n')
			}
			return b.String()
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "interactive selection failed")
	}
	return &archives[idx], nil
}
