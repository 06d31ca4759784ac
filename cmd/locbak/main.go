// Package main is the entry point for the locbak CLI.
package main

import (
	"fmt"
	"os"

	"github.com/thoreinstein/locbak/cmd/locbak/commands"
	"github.com/thoreinstein/locbak/internal/errors"
)

func main() {
	err := commands.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var exitErr *errors.ExitError
		if errors.As(err, &exitErr) && exitErr.Err != nil && exitErr.Suggestion != "" {
			fmt.Fprintln(os.Stderr, exitErr.Suggestion)
		}
	}
	os.Exit(errors.ExitCode(err))
}
