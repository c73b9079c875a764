// Package system reports facts about the host the CLI runs on.
package system

import (
	"os"
	"runtime"

	"golang.org/x/term"
)

func Architecture() string {
	return runtime.GOARCH
}

func OS() string {
	return runtime.GOOS
}

// IsAIX reports whether the native inspection tools can be expected on PATH.
func IsAIX() bool {
	return runtime.GOOS == "aix"
}

// HasTTY reports whether stderr is attached to a terminal.
func HasTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// TerminalWidth returns the width of the terminal on stderr, or 80.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
