package ui

import "github.com/charmbracelet/lipgloss"

// Color tokens. Kept small; the lifecycle screens share one palette.
var (
	colorAccent  = lipgloss.Color("#54A0FF")
	colorSuccess = lipgloss.Color("#73F59F")
	colorWarning = lipgloss.Color("#F5D573")
	colorError   = lipgloss.Color("#FF8787")
	colorSubtle  = lipgloss.Color("#888888")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorAccent).
			Padding(0, 1)

	screenNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	fieldLabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Width(22)

	fieldValueStyle = lipgloss.NewStyle()

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	restrictedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(colorWarning).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	terminalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)

	contentStyle = lipgloss.NewStyle().
			Padding(1, 2)

	formLabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)
)
