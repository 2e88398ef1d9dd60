package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hackx/skillos/internal/metrics"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F") // Deep void
	ColorSurfaceBg = lipgloss.Color("#12121A") // Dark surface
	ColorBorder    = lipgloss.Color("#2A2A4A") // Glass border (purple tint)

	// Band colors for cognitive load
	ColorOptimal  = lipgloss.Color("#39FF14") // Neon green
	ColorHigh     = lipgloss.Color("#FFAA00") // Electric amber
	ColorCritical = lipgloss.Color("#FF0055") // Hot red-pink

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0") // Lavender gray
	ColorTextMuted     = lipgloss.Color("#6B6B8D") // Purple-gray

	ColorAccent    = lipgloss.Color("#FF2E97") // Neon pink
	ColorAccentDim = lipgloss.Color("#BF40FF") // Neon purple

	// Series colors
	ColorLoad   = lipgloss.Color("#FF006E")
	ColorEnergy = lipgloss.Color("#06FFA5")
)

// Base styles for the dashboard
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	BannerStyle = lipgloss.NewStyle().
			Foreground(ColorCritical).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)
)

// Connection indicator glyphs
const (
	IndicatorConnected    = "●"
	IndicatorConnecting   = "◐"
	IndicatorDisconnected = "◌"
)

// ConnectingFrames animate the indicator while a subscription is being set up.
var ConnectingFrames = []string{"◐", "◓", "◑", "◒"}

// BandColor returns the color for a load band.
func BandColor(b metrics.Band) lipgloss.Color {
	switch b {
	case metrics.BandCritical:
		return ColorCritical
	case metrics.BandHigh:
		return ColorHigh
	default:
		return ColorOptimal
	}
}

// LoadColor classifies a load value and returns its band color.
func LoadColor(load float64) lipgloss.Color {
	return BandColor(metrics.Classify(int(load)))
}

// BandBadge renders the uppercase band label inside a colored pill.
func BandBadge(b metrics.Band) string {
	color := BandColor(b)
	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.RoundedBorder(), false, true).
		BorderForeground(color).
		Bold(true).
		Padding(0, 1).
		Render(strings.ToUpper(b.String()))
}

// StatusIndicator renders the glyph and label for a subscription status.
// frame selects the animation frame while connecting.
func StatusIndicator(status metrics.Status, frame int) string {
	switch status {
	case metrics.StatusConnected:
		return lipgloss.NewStyle().Foreground(ColorOptimal).Render(IndicatorConnected + " live")
	case metrics.StatusDisconnected:
		return lipgloss.NewStyle().Foreground(ColorCritical).Render(IndicatorDisconnected + " offline")
	default:
		glyph := ConnectingFrames[frame%len(ConnectingFrames)]
		return lipgloss.NewStyle().Foreground(ColorHigh).Render(glyph + " connecting")
	}
}

// Gauge renders a horizontal bar of width cells filled to percent in color.
func Gauge(width int, percent float64, color lipgloss.Color) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	fill := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("▰", filled))
	empty := lipgloss.NewStyle().Foreground(ColorBorder).Render(strings.Repeat("▱", width-filled))
	return fill + empty
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	// Left: "╭─ " + title + " ", right: " " + value + " ╮"
	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}
	middle := strings.Repeat("─", fillWidth)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		value +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
// Format: ╰────────────────────────────────────────────────────╯
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	middle := strings.Repeat("─", width-2)
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + middle + "╯")
}

// SectionContentLine renders a content line with left and right borders, padded to width.
// Format: │ content                                              │
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	innerWidth := width - 4
	padding := innerWidth - lipgloss.Width(content)
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}
