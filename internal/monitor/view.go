package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/metrics"
)

// EmptyClock is shown in place of the latest sample time when the window is empty.
const EmptyClock = "--:--:--"

// DisconnectedBanner is shown above the chart while the live channel is down.
const DisconnectedBanner = "⚠ Realtime Disconnected"

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	width := m.contentWidth()

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")
	b.WriteString(m.renderGauges(width))
	b.WriteString("\n")

	if m.state.Status == metrics.StatusDisconnected {
		b.WriteString(m.renderBanner())
		b.WriteString("\n")
	}
	if line := m.renderError(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(m.renderChart(width))
	b.WriteString("\n")

	if m.showTable {
		b.WriteString(m.renderTable(width))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

// renderHeader renders the title bar with user, window fill and sync age.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("skillos monitor")

	parts := []string{""}
	if m.opts.Phone != "" {
		parts = append(parts, m.opts.Phone)
	}
	parts = append(parts, fmt.Sprintf("%d/%d samples", len(m.state.Samples), m.state.Capacity))

	switch secs := m.SecondsSinceSync(); secs {
	case -1:
		parts = append(parts, "waiting for data")
	case 0:
		parts = append(parts, "synced just now")
	default:
		parts = append(parts, fmt.Sprintf("synced %ds ago", secs))
	}

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(strings.Join(parts, " | "))

	return HeaderStyle.Render(title+stats) + "  " + StatusIndicator(m.state.Status, m.frame)
}

// renderSummary renders the load band badge and the latest sample time.
func (m Model) renderSummary() string {
	clock := EmptyClock
	band := metrics.BandOptimal
	if latest := m.state.Latest; latest != nil {
		clock = formatClock(*latest)
		band = metrics.Classify(latest.CognitiveLoad)
	}

	updated := MutedStyle.Render("UPDATED: " + clock)
	return lipgloss.JoinHorizontal(lipgloss.Center, BandBadge(band), "  ", updated)
}

// renderGauges renders the cognitive load and energy gauges.
func (m Model) renderGauges(width int) string {
	loadText, energyText := "--%", "--%"
	var load, energy float64
	loadColor := ColorOptimal
	if latest := m.state.Latest; latest != nil {
		load, energy = float64(latest.CognitiveLoad), float64(latest.EnergyLevel)
		loadText = fmt.Sprintf("%d%%", latest.CognitiveLoad)
		energyText = fmt.Sprintf("%d%%", latest.EnergyLevel)
		loadColor = BandColor(metrics.Classify(latest.CognitiveLoad))
	}

	barWidth := width - 4
	if barWidth > 60 {
		barWidth = 60
	}

	loadValue := lipgloss.NewStyle().Foreground(loadColor).Bold(true).Render(loadText)
	energyValue := lipgloss.NewStyle().Foreground(ColorEnergy).Bold(true).Render(energyText)

	lines := []string{
		SectionHeader("Cognitive Load", loadValue, width),
		SectionContentLine(Gauge(barWidth, load, loadColor), width),
		SectionContentLine("", width),
		SectionContentLine(LabelStyle.Render("Energy ")+energyValue, width),
		SectionContentLine(Gauge(barWidth, energy, ColorEnergy), width),
		SectionFooter(width),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBanner() string {
	poll := MutedStyle.Render(fmt.Sprintf(" polling every %s", m.opts.PollInterval))
	return BannerStyle.Render(DisconnectedBanner) + poll
}

// renderError shows the last refresh or feed error inline.
func (m Model) renderError() string {
	err := m.refreshErr
	if err == nil {
		err = m.state.Err
	}
	if err == nil {
		return ""
	}
	// The banner already covers a dropped connection
	if m.state.Status == metrics.StatusDisconnected && errors.IsCode(err, errors.ErrConnection) {
		return ""
	}
	return ErrorStyle.Render("✗ " + errors.Message(err))
}

// renderChart renders both series over a fixed 0-100 range.
func (m Model) renderChart(width int) string {
	series := m.state.Series
	title := fmt.Sprintf("Last %d samples", series.Len())
	legend := lipgloss.NewStyle().Foreground(ColorLoad).Render("■ load") + " " +
		lipgloss.NewStyle().Foreground(ColorEnergy).Render("■ energy")

	inner := width - 4
	if inner < 1 {
		inner = 1
	}

	lines := []string{SectionHeader(title, legend, width)}

	if series.Len() == 0 {
		lines = append(lines, SectionContentLine(MutedStyle.Render("Waiting for data..."), width))
		lines = append(lines, SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	switch m.LayoutMode() {
	case LayoutMinimal:
		lines = append(lines,
			SectionContentLine(RenderMiniSparkline(series.LoadValues(), inner, LoadColor), width),
			SectionContentLine(RenderMiniSparkline(series.EnergyValues(), inner, Fixed(ColorEnergy)), width),
		)
	default:
		loadHeight, energyHeight := 4, 2
		if m.LayoutMode() == LayoutWide {
			loadHeight, energyHeight = 8, 4
		}
		for _, row := range strings.Split(RenderBrailleSparkline(series.LoadValues(), inner, loadHeight, LoadColor), "\n") {
			lines = append(lines, SectionContentLine(row, width))
		}
		lines = append(lines, SectionContentLine("", width))
		for _, row := range strings.Split(RenderBrailleSparkline(series.EnergyValues(), inner, energyHeight, Fixed(ColorEnergy)), "\n") {
			lines = append(lines, SectionContentLine(row, width))
		}
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderTable renders the accessible data table, newest first.
func (m Model) renderTable(width int) string {
	if len(m.state.Samples) == 0 {
		return MutedStyle.Render("No samples yet")
	}
	header := SectionHeader("Data", MutedStyle.Render(fmt.Sprintf("%d rows", len(m.state.Samples))), width)
	return header + "\n" + m.table.View()
}

// renderFooter renders the keyboard help footer.
func (m Model) renderFooter() string {
	refresh := "r refresh"
	if m.refreshing {
		refresh = "refreshing..."
	}
	tableHint := "t table"
	if m.showTable {
		tableHint = "t hide table"
	}
	hints := []string{"q quit", refresh, tableHint, "? help"}
	return FooterStyle.Render(strings.Join(hints, " | "))
}
