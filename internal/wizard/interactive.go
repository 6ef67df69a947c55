// Package wizard holds the interactive prompts used when a command is run
// from a terminal.
package wizard

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// CanInteract reports whether a prompt may be shown: it must be wanted and
// both ends must be a terminal.
func CanInteract(wanted bool) bool {
	return wanted && IsTerminal() && term.IsTerminal(int(os.Stdin.Fd()))
}
