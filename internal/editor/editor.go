// Package editor launches the user's preferred text editor on a file.
package editor

import (
	"io"
	"os/exec"
	"strings"

	"github.com/thoreinstein/locbak/internal/errors"
)

// Streams are the standard streams handed to the editor process.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Open runs the user's editor on path and waits for it to exit.
// The editor comes from $EDITOR, then $VISUAL, then nano, then vi. The
// variables may carry arguments, e.g. EDITOR="code --wait".
func Open(path string, streams Streams, getenv func(string) string) error {
	cmd := Command(path, getenv)
	cmd.Stdin = streams.In
	cmd.Stdout = streams.Out
	cmd.Stderr = streams.Err

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", cmd.Args[0])
	}
	return nil
}

// Command returns the editor command for path without starting it.
func Command(path string, getenv func(string) string) *exec.Cmd {
	args := strings.Fields(detectEditor(getenv))
	args = append(args, path)
	return exec.Command(args[0], args[1:]...)
}

// detectEditor returns the editor command line to use based on environment
// variables and available binaries. Fallback chain: $EDITOR → $VISUAL → nano → vi
func detectEditor(getenv func(string) string) string {
	if editor := strings.TrimSpace(getenv("EDITOR")); editor != "" {
		return editor
	}

	// Then $VISUAL (for full-screen editors)
	if visual := strings.TrimSpace(getenv("VISUAL")); visual != "" {
		return visual
	}

	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}

	// POSIX standard fallback
	return "vi"
}
