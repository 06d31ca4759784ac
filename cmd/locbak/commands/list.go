package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available archives",
	Long: `List the backup archives of the project, newest first.

The first archive listed is the one restore would use.`,
	Example: `  # List archives
  locbak list

  # Output as JSON
  locbak list --json

  See Also:
    locbak inspect - Show the entries of an archive
    locbak prune   - Remove old archives`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// archiveOutput represents a single archive in JSON output.
type archiveOutput struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
	Entries int       `json:"entries"`
	Size    int64     `json:"size"`
}

func runList(c *cobra.Command, _ []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}
	return runListWithWriter(c.OutOrStdout(), p)
}

func runListWithWriter(w io.Writer, p *project) error {
	catalog, err := backup.NewCatalog(p.base, p.opts...)
	if err != nil {
		return errors.NewUserError(err, "Check the backup_dir config key")
	}

	archives, err := catalog.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrap(err, "listing archives")
	}

	output := make([]archiveOutput, 0, len(archives))
	for _, a := range archives {
		entries, err := catalog.Entries(a.Name)
		if err != nil {
			// Unreadable archives are still listed
			entries = nil
		}
		output = append(output, archiveOutput{
			Name:    a.Name,
			Path:    a.Path,
			Created: a.Created,
			Entries: len(entries),
			Size:    a.Size,
		})
	}

	if listJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(output), "encoding archive list")
	}

	pal := newPalette(w)
	if len(output) == 0 {
		fmt.Fprintf(w, "%s\n", pal.gray.Sprintf("No archives in %s", catalog.Dir()))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		pal.bold.Sprint("ARCHIVE"), pal.bold.Sprint("CREATED"),
		pal.bold.Sprint("ENTRIES"), pal.bold.Sprint("SIZE"))
	for i, a := range output {
		name := a.Name
		if i == 0 {
			name = pal.green.Sprint(name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			name, a.Created.Format(time.DateTime), a.Entries, formatSize(a.Size))
	}
	return errors.Wrap(tw.Flush(), "writing archive list")
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
