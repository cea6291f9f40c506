// Package render formats receipts, statistics and extraction results for the
// terminal.
package render

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// AccentColor is the main theme color
	AccentColor = lipgloss.Color("#0EA5E9")
	// SuccessColor indicates successful operations
	SuccessColor = lipgloss.Color("#10B981")
	// ErrorColor indicates failures
	ErrorColor = lipgloss.Color("#EF4444")
	// SubtleColor is used for labels and hints
	SubtleColor = lipgloss.Color("#6B7280")

	// TitleStyle is used for section titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	// SubtleStyle formats less prominent text
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// SuccessStyle formats success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// ErrorStyle formats error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// CardStyle is used for the statistics cards
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(0, 2).
			MarginRight(1)

	cardValueStyle = lipgloss.NewStyle().Bold(true)
)

// Success formats a success line
func Success(msg string) string {
	return SuccessStyle.Render("✓ " + msg)
}

// Error formats an error line
func Error(msg string) string {
	return ErrorStyle.Render("✗ " + msg)
}
