package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille character rendering for high-resolution terminal graphs.
//
// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty) and uses bit patterns:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8

const brailleBase = '⠀'

// Every series on the dashboard is a percentage.
const (
	chartMin = 0.0
	chartMax = 100.0
)

// sparklineBlocks are block characters for 8-level vertical resolution (lowest to highest).
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// brailleDots maps [row][col] to the bit offset for a braille dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// ColorFunc picks the color of a chart column from its peak value.
type ColorFunc func(value float64) lipgloss.Color

// Fixed returns a ColorFunc that always yields c.
func Fixed(c lipgloss.Color) ColorFunc {
	return func(float64) lipgloss.Color { return c }
}

// normalizeValue converts a value to 0-1 range given min/max bounds.
func normalizeValue(val, minVal, maxVal float64) float64 {
	if maxVal > minVal {
		n := (val - minVal) / (maxVal - minVal)
		if n < 0 {
			return 0
		}
		if n > 1 {
			return 1
		}
		return n
	}
	return 0.5
}

// clampInt clamps an integer to a range [0, maxVal].
func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// RenderBrailleSparkline renders a 0-100 series as a braille area chart.
// Each character holds 2 horizontal points and 4 vertical levels per row.
// Data shorter than the chart is right-aligned so the newest point sits at
// the right edge; longer data is downsampled keeping peaks.
func RenderBrailleSparkline(data []float64, width, height int, colorOf ColorFunc) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2

	resampled := data
	if len(data) > targetPoints {
		resampled = resampleData(data, targetPoints)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	colMaxValues := make([]float64, width)
	horizOffset := targetPoints - len(resampled)
	if horizOffset < 0 {
		horizOffset = 0
	}

	for i, val := range resampled {
		dotHeight := clampInt(int(normalizeValue(val, chartMin, chartMax)*float64(totalDots)), totalDots)

		charCol := (i + horizOffset) / 2
		if charCol >= width {
			continue
		}
		if val > colMaxValues[charCol] {
			colMaxValues[charCol] = val
		}
		subCol := (i + horizOffset) % 2

		// Fill dots from bottom up
		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - (dot / 4)
			if row < 0 {
				continue
			}
			subRow := 3 - (dot % 4)
			grid[row][charCol] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var lineBuilder strings.Builder
		for colIdx, char := range row {
			style := lipgloss.NewStyle().Foreground(colorOf(colMaxValues[colIdx])).Background(ColorSurfaceBg)
			lineBuilder.WriteString(style.Render(string(char)))
		}
		lines = append(lines, lineBuilder.String())
	}

	return strings.Join(lines, "\n")
}

// RenderMiniSparkline renders a single-row 0-100 sparkline using block
// characters, colored by the most recent value.
func RenderMiniSparkline(data []float64, width int, colorOf ColorFunc) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	resampled := data
	if len(data) > width {
		resampled = resampleData(data, width)
	}

	var result strings.Builder
	for _, val := range resampled {
		idx := clampInt(int(normalizeValue(val, chartMin, chartMax)*float64(len(sparklineBlocks)-1)), len(sparklineBlocks)-1)
		result.WriteRune(sparklineBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(colorOf(data[len(data)-1])).Render(result.String())
}

// resampleData resamples data to the target size.
// When downsampling, uses max-based sampling to preserve peaks.
// When upsampling, uses linear interpolation.
func resampleData(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) == targetSize {
		return data
	}

	result := make([]float64, targetSize)

	if len(data) == 1 {
		for i := range result {
			result[i] = data[0]
		}
		return result
	}

	if len(data) > targetSize {
		bucketSize := float64(len(data)) / float64(targetSize)
		for i := 0; i < targetSize; i++ {
			start := int(float64(i) * bucketSize)
			end := int(float64(i+1) * bucketSize)
			if end > len(data) {
				end = len(data)
			}
			if start >= end {
				start = end - 1
			}
			if start < 0 {
				start = 0
			}

			maxVal := data[start]
			for j := start + 1; j < end; j++ {
				if data[j] > maxVal {
					maxVal = data[j]
				}
			}
			result[i] = maxVal
		}
		return result
	}

	scale := float64(len(data)-1) / float64(targetSize-1)
	for i := 0; i < targetSize; i++ {
		pos := float64(i) * scale
		idx := int(pos)
		frac := pos - float64(idx)

		if idx >= len(data)-1 {
			result[i] = data[len(data)-1]
		} else {
			result[i] = data[idx]*(1-frac) + data[idx+1]*frac
		}
	}

	return result
}
