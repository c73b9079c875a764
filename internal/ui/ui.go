// Package ui renders status messages and prompts on stderr. Report output
// goes to stdout and never passes through here.
package ui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Out receives every status line. Tests may swap it.
var Out io.Writer = os.Stderr

var (
	accent  = lipgloss.Color("#22c55e")
	subtle  = lipgloss.Color("#666666")
	warning = lipgloss.Color("#eab308")
	danger  = lipgloss.Color("#ef4444")

	successStyle = lipgloss.NewStyle().
			Foreground(accent)

	errorStyle = lipgloss.NewStyle().
			Foreground(danger)

	mutedStyle = lipgloss.NewStyle().
			Foreground(subtle)

	boldStyle = lipgloss.NewStyle().Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(warning)
)

func Bold(text string) string {
	return boldStyle.Render(text)
}

func Success(text string) {
	fmt.Fprintln(Out, successStyle.Render("✓ "+text))
}

func Error(text string) {
	fmt.Fprintln(Out, errorStyle.Render("✗ "+text))
}

func Info(text string) {
	fmt.Fprintln(Out, "  "+text)
}

func Muted(text string) {
	fmt.Fprintln(Out, mutedStyle.Render(text))
}

func Warn(text string) {
	fmt.Fprintln(Out, warnStyle.Render("⚠ "+text))
}

func Confirm(question string, defaultVal bool) (bool, error) {
	var result bool = defaultVal

	// Prompts render on Out, never on stdout.
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&result),
		),
	).WithProgramOptions(tea.WithOutput(Out))

	err := form.Run()
	return result, err
}
