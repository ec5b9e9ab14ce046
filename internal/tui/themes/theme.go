// Package themes holds the color themes of the transaction browser.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Selected      lipgloss.Style
	Header        lipgloss.Style
	RoundedBox    lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style
	Income        lipgloss.Style
	Expense       lipgloss.Style
	Primary       lipgloss.Color
	Border        lipgloss.Color
	Muted         lipgloss.Color
}

// Default is the default theme, matching the command line colors.
var Default = Theme{
	Primary: lipgloss.Color("#2E7D32"),
	Border:  lipgloss.Color("#404040"),
	Muted:   lipgloss.Color("#737373"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#2E7D32")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#2E7D32")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true),
	Header: lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		BorderBottom(true).
		Bold(true).
		Padding(0, 1),
	RoundedBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#2E7D32")).
		Padding(0, 1),

	StatusSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")).
		Bold(true),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3b82f6")),

	Income: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")),
	Expense: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")),
}

// Plain has no colors, for terminals without color support and for tests.
var Plain = Theme{
	Title:         lipgloss.NewStyle().Bold(true),
	Subtitle:      lipgloss.NewStyle(),
	Normal:        lipgloss.NewStyle(),
	Selected:      lipgloss.NewStyle().Reverse(true),
	Header:        lipgloss.NewStyle().Bold(true).Padding(0, 1),
	RoundedBox:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	StatusSuccess: lipgloss.NewStyle(),
	StatusError:   lipgloss.NewStyle(),
	StatusInfo:    lipgloss.NewStyle(),
	Income:        lipgloss.NewStyle(),
	Expense:       lipgloss.NewStyle(),
}
