// Package style centralizes terminal styling for command output.
package style

import "github.com/charmbracelet/lipgloss"

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	Green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	Cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)

// Prefixes for one-line command results.
var (
	SuccessPrefix = Green.Render("✓")
	ErrorPrefix   = Error.Render("✗")
	WarningPrefix = Warning.Render("!")
)
