package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/locbak/internal/backup"
	"github.com/thoreinstein/locbak/internal/config"
	"github.com/thoreinstein/locbak/internal/doctor"
	"github.com/thoreinstein/locbak/internal/errors"
)

var (
	doctorJSON bool
	doctorAll  bool
	doctorFix  bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorAll, "all", false,
		"show every check, including passed ones")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"repair fixable issues (permissions, archives beyond retention)")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and archive issues",
	Long: `Run diagnostic checks on the locbak configuration, the backup directory
and every archive in it.

Archives are read in full, so damaged entries and entries without a stamp
are found before a restore needs them.

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Check the project in the working directory
  locbak doctor

  # Prune archives beyond retention and fix directory permissions
  locbak doctor --fix

  See Also: locbak prune, locbak inspect`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// doctorOptions selects what runDoctorWithWriter prints and does.
type doctorOptions struct {
	json bool
	all  bool
	fix  bool
}

func runDoctor(c *cobra.Command, _ []string) error {
	p, err := resolveProject(c)
	if err != nil {
		return err
	}
	check := doctor.NewConfigCheck(config.Used(), configLoadErr)
	opts := doctorOptions{json: doctorJSON, all: doctorAll, fix: doctorFix}
	return runDoctorWithWriter(c.OutOrStdout(), afero.NewOsFs(), p, check, opts)
}

func runDoctorWithWriter(w io.Writer, fs afero.Fs, p *project, configCheck doctor.Check, opts doctorOptions) error {
	catalog, err := backup.NewCatalog(p.base, append([]backup.Option{backup.WithFs(fs)}, p.opts...)...)
	if err != nil {
		return errors.NewUserError(err, "Check the backup_dir config key")
	}

	runner := doctor.NewRunner(
		configCheck,
		doctor.NewBackupDirCheck(fs, catalog.Dir()),
		doctor.NewArchiveCheck(catalog),
		doctor.NewRetentionCheck(catalog, cfg.Retention),
	)

	report := runner.Run()

	var fixes []doctor.FixResult
	if opts.fix {
		fixes = runner.Fix()
	}

	if opts.json {
		out := struct {
			*doctor.Report
			Fixes []doctor.FixResult `json:"fixes,omitempty"`
		}{report, fixes}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return errors.Wrap(err, "encoding JSON")
		}
	} else {
		printDoctorReport(w, report, fixes, opts.all)
	}

	switch {
	case report.HasErrors():
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	case report.HasWarnings() && len(fixes) == 0:
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func printDoctorReport(w io.Writer, report *doctor.Report, fixes []doctor.FixResult, showAll bool) {
	pal := newPalette(w)

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(pal, result.Status), result.Category, result.Name, result.Message)
		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	for _, f := range fixes {
		hasOutput = true
		mark := pal.green.Sprint("✓")
		if !f.Fixed {
			mark = pal.yellow.Sprint("-")
		}
		if f.Error != nil {
			mark = pal.red.Sprint("✗")
		}
		fmt.Fprintf(w, "%s fix %s: %s\n", mark, f.Path, f.Description)
	}

	if hasOutput {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(pal *palette, s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return pal.green.Sprint("✓")
	case doctor.SeverityInfo:
		return pal.cyan.Sprint("ℹ")
	case doctor.SeverityWarning:
		return pal.yellow.Sprint("⚠")
	case doctor.SeverityError:
		return pal.red.Sprint("✗")
	default:
		return "?"
	}
}

// errDoctorWarnings is a sentinel error for exit code 1.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is a sentinel error for exit code 2.
var errDoctorErrors = errors.New("errors found")
