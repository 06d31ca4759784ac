package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/errors"
)

var writeInput string

func init() {
	writeCmd.Flags().StringVarP(&writeInput, "input", "i", "-",
		"File holding the new content, or - for stdin")
	rootCmd.AddCommand(writeCmd)
}

var writeCmd = &cobra.Command{
	Use:   "write <file>",
	Short: "Replace a file, archiving its previous content",
	Long: `Replace a file with new content read from stdin or --input.

If the file already holds exactly that content nothing happens. Otherwise
the current content is archived first, so "locbak restore" can undo the
change as long as the file is not edited again afterwards.

Relative paths are resolved against the project directory.`,
	Example: `  # Pipe a rewritten file through locbak
  sed 's/Hello/@L["Hello"]/' Pages/Index.razor | locbak write Pages/Index.razor

  # Take the new content from a file
  locbak write Pages/Index.razor --input /tmp/Index.razor

  See Also:
    locbak restore - Undo the most recent run`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func runWrite(c *cobra.Command, args []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}

	var content []byte
	if writeInput == "-" {
		content, err = io.ReadAll(c.InOrStdin())
	} else {
		content, err = os.ReadFile(writeInput)
	}
	if err != nil {
		return errors.NewUserError(errors.Wrap(err, "reading new content"), "Check the --input flag")
	}

	return runWriteWithWriter(c.OutOrStdout(), afero.NewOsFs(), p, args[0], content)
}

func runWriteWithWriter(w io.Writer, fs afero.Fs, p *project, path string, content []byte) error {
	opts := append([]backup.Option{backup.WithFs(fs)}, p.opts...)

	var archive string
	err := backup.Run(p.base, func(bw *backup.Writer) error {
		if err := bw.WriteWithBackup(path, content); err != nil {
			return err
		}
		archive = bw.Archive()
		return nil
	}, opts...)
	if err != nil {
		if errors.Is(err, backup.ErrOutsideProject) {
			return errors.NewUserError(err, "Only files inside the project directory can be written")
		}
		return err
	}

	pal := newPalette(w)
	switch {
	case p.dryRun:
		fmt.Fprintf(w, "%sWould write %s\n", dryRunNote(pal, true), path)
	case archive == "":
		fmt.Fprintf(w, "%s %s\n", pal.gray.Sprint("-"), path+" (unchanged or new, nothing archived)")
	default:
		fmt.Fprintf(w, "%s Wrote %s, previous content in %s\n", pal.green.Sprint("✓"), path, archive)
	}
	return nil
}
