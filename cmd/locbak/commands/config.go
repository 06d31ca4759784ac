package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/locbak/internal/config"
	"github.com/thoreinstein/locbak/internal/editor"
	"github.com/thoreinstein/locbak/internal/errors"
	"github.com/thoreinstein/locbak/internal/paths"
	"github.com/thoreinstein/locbak/pkg/fileutil"
)

var (
	configInitFormat string
	configInitForce  bool
	configInitDir    string
)

func init() {
	configInitCmd.Flags().StringVar(&configInitFormat, "format", "yaml", "File format: yaml, toml")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")
	configInitCmd.Flags().StringVar(&configInitDir, "dir", "",
		"Directory to write to (default: the user config dir)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage locbak configuration",
	Long: `Manage locbak configuration.

Configuration is read from --config, ./locbak.yaml (or .toml, .json), or
locbak.yaml in the user config dir. Every key can be overridden with a
LOCBAK_ environment variable, for example LOCBAK_DRY_RUN=true.

Without a subcommand, shows the effective configuration.`,
	Example: `  # Show the effective configuration
  locbak config

  # Write a default config file
  locbak config init

See Also: locbak config init, locbak config show, locbak config edit`,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in your editor",
	Long: `Open the configuration file in $EDITOR (or $VISUAL, nano, vi).

Edits the file given by --config, else the file that was loaded. When no
file exists yet, a default locbak.yaml is written to the user config dir
first.`,
	Example: `  locbak config edit
  EDITOR="code --wait" locbak config edit`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the effective configuration in YAML format, after files, environment and flags are merged.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file holding the default values.

The file is written to the user config dir unless --dir is given.`,
	Example: `  # YAML in the user config dir
  locbak config init

  # TOML next to the project
  locbak config init --format toml --dir .

See Also: locbak config show`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func runConfigShow(c *cobra.Command, _ []string) error {
	return runConfigShowWithWriter(c.OutOrStdout(), cfg, config.Used())
}

func runConfigShowWithWriter(w io.Writer, conf *config.Config, source string) error {
	if source == "" {
		source = "(defaults)"
	}
	fmt.Fprintf(w, "# source: %s\n", source)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(conf); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(enc.Close(), "encoding config")
}

func runConfigInit(c *cobra.Command, _ []string) error {
	dir := configInitDir
	if dir == "" {
		dir = paths.ConfigDir()
	}
	return runConfigInitWithWriter(c.OutOrStdout(), afero.NewOsFs(), dir, configInitFormat, configInitForce)
}

func runConfigInitWithWriter(w io.Writer, fs afero.Fs, dir, format string, force bool) error {
	switch format {
	case "yaml", "yml":
		format = "yaml"
	case "toml":
	default:
		return errors.NewUserError(errors.Newf("unsupported format %q", format), "Use --format yaml or --format toml")
	}

	path := filepath.Join(dir, paths.AppName+"."+format)

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return errors.Wrapf(err, "checking %s", path)
	}
	if exists && !force {
		fmt.Fprintf(w, "Configuration already exists at %s\n", path)
		fmt.Fprintln(w, "Use --force to overwrite")
		return nil
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	defaults := config.Default()
	if format == "toml" {
		err = fileutil.AtomicWriteTOML(fs, path, defaults, fileutil.DefaultFilePerm)
	} else {
		err = fileutil.AtomicWriteYAML(fs, path, defaults, fileutil.DefaultFilePerm)
	}
	if err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	fmt.Fprintf(w, "%s Wrote %s\n", newPalette(w).green.Sprint("✓"), path)
	return nil
}

func runConfigEdit(c *cobra.Command, _ []string) error {
	path := configFile
	if path == "" {
		path = config.Used()
	}
	streams := editor.Streams{In: c.InOrStdin(), Out: c.OutOrStdout(), Err: c.ErrOrStderr()}
	open := func(p string) error { return editor.Open(p, streams, os.Getenv) }
	return runConfigEditWithWriter(c.OutOrStdout(), afero.NewOsFs(), path, paths.ConfigDir(), open)
}

// runConfigEditWithWriter opens path with open. An empty path means no config
// file was found, so a default one is written to dir first.
func runConfigEditWithWriter(w io.Writer, fs afero.Fs, path, dir string, open func(string) error) error {
	if path == "" {
		if err := runConfigInitWithWriter(w, fs, dir, "yaml", false); err != nil {
			return err
		}
		path = filepath.Join(dir, paths.AppName+".yaml")
	}

	fmt.Fprintf(w, "Location: %s\n", path)
	if err := open(path); err != nil {
		return errors.NewUserError(err, "Set $EDITOR to the editor you want to use")
	}

	// Report problems now rather than on the next command
	config.Init()
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(w, "%s %v\n", newPalette(w).yellow.Sprint("⚠"), err)
	}
	return nil
}
