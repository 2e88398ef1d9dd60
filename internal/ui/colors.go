package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Neon palette shared by the CLI output and the TUIs.
const (
	ColorNeonPink   lipgloss.Color = "#FF2E97"
	ColorNeonCyan   lipgloss.Color = "#00FFFF"
	ColorNeonPurple lipgloss.Color = "#BF40FF"
	ColorNeonGreen  lipgloss.Color = "#39FF14"
	ColorNeonAmber  lipgloss.Color = "#FFAA00"
	ColorNeonRed    lipgloss.Color = "#FF0055"

	ColorDeepVoid    lipgloss.Color = "#0A0A0F"
	ColorGlassBorder lipgloss.Color = "#2A2A4A"
)

// Semantic colors for status indication
const (
	ColorSuccess = ColorNeonGreen
	ColorError   = ColorNeonRed
	ColorWarning = ColorNeonAmber
	ColorInfo    = ColorNeonCyan
	ColorAccent  = ColorNeonPink
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#FFFFFF"
	ColorSecondary lipgloss.Color = "#B4B4D0"
	ColorMuted     lipgloss.Color = "#6B6B8D"
)

// GradientColors cycle through the spinner frames (pink -> purple -> cyan -> green).
var GradientColors = []lipgloss.Color{
	ColorNeonPink,
	ColorNeonPurple,
	ColorNeonCyan,
	ColorNeonGreen,
}

// SuccessStyle renders text in the success color.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle renders text in the error color.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle renders text in the warning color.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// MutedStyle renders secondary text.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// ApplyColorMode sets the lipgloss color profile from the output.color
// setting: "always" forces true color, "never" disables color, and "auto"
// (or anything else) detects the terminal. NO_COLOR is honored in auto mode.
func ApplyColorMode(mode string) {
	switch strings.ToLower(mode) {
	case "always":
		lipgloss.SetColorProfile(termenv.TrueColor)
	case "never":
		DisableColors()
	default:
		if os.Getenv("NO_COLOR") != "" {
			DisableColors()
			return
		}
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
	}
}

// DisableColors switches lipgloss to monochrome output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
