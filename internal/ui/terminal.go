// Package ui holds terminal capability checks shared by the CLI commands.
package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal. The watch
// dashboard needs one; under cron or the session's tee pipeline stdout is
// a pipe.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
