package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hackx/skillos/internal/metrics"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

// sparklineBlockRunes provides indexed access to block characters.
var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline renders the most recent width load values on a fixed
// 0-100 scale. The line is colored by the band of the last value.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	for _, v := range data {
		level := int(v / 100 * float64(numLevels-1))
		if level < 0 {
			level = 0
		} else if level >= numLevels {
			level = numLevels - 1
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	lastValue := data[len(data)-1]
	return lipgloss.NewStyle().Foreground(BandColor(metrics.Classify(int(lastValue)))).Render(sb.String())
}

// BandColor maps a load band to its semantic color.
func BandColor(b metrics.Band) lipgloss.Color {
	switch b {
	case metrics.BandCritical:
		return ColorError
	case metrics.BandHigh:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
