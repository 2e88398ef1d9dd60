package login

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/hackx/skillos/internal/ui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ui.ColorAccent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	promptStyle = lipgloss.NewStyle().
			Foreground(ui.ColorAccent)

	inputStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(ui.ColorMuted)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	accentStyle = lipgloss.NewStyle().
			Foreground(ui.ColorInfo)

	helpStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(ui.ColorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(ui.ColorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError)
)
