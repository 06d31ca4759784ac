package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/locbak/internal/errors"
)

var genDocCmd = &cobra.Command{
	Use:    "gen-doc",
	Short:  "Generate Markdown or man page documentation for the CLI",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outputDir, _ := cmd.Flags().GetString("dir")
		format, _ := cmd.Flags().GetString("format")
		return runGenDocWithWriter(cmd.OutOrStdout(), rootCmd, outputDir, format)
	},
}

func init() {
	genDocCmd.Flags().StringP("dir", "d", "", "Output directory for documentation")
	genDocCmd.Flags().String("format", "markdown", "Output format: markdown, man")
	rootCmd.AddCommand(genDocCmd)
}

func runGenDocWithWriter(w io.Writer, root *cobra.Command, outputDir, format string) error {
	if outputDir == "" {
		return errors.NewUserError(errors.New("output directory is required"), "Pass --dir")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	var err error
	switch format {
	case "markdown", "md":
		err = doc.GenMarkdownTreeCustom(root, outputDir, filePrepender, linkHandler)
	case "man":
		err = doc.GenManTree(root, &doc.GenManHeader{Title: "LOCBAK", Section: "1"}, outputDir)
	default:
		return errors.NewUserError(errors.Newf("unsupported format %q", format), "Use --format markdown or --format man")
	}
	if err != nil {
		return errors.Wrapf(err, "generating %s", format)
	}

	fmt.Fprintf(w, "Documentation generated in %s\n", outputDir)
	return nil
}

func filePrepender(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	// locbak_config_init.md -> locbak config init
	title := strings.ReplaceAll(base, "_", " ")

	return fmt.Sprintf(`---
title: "%s"
description: "Reference for %s command"
draft: false
toc: true
---
`, title, title)
}

func linkHandler(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "/docs/reference/" + strings.ToLower(base) + "/"
}
