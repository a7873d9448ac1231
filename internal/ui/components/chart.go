// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

// noData is shown in place of an empty chart.
const noData = "No data available"

// axisColors matches the asciigraph series colours to the axis label styles.
var axisColors = map[models.Axis]asciigraph.AnsiColor{
	models.AxisX:     asciigraph.Orange,
	models.AxisY:     asciigraph.MediumSeaGreen,
	models.AxisZ:     asciigraph.Orchid,
	models.AxisColor: asciigraph.SkyBlue,
}

// RenderAxisTrend plots one bound metric against image order. Values of
// different metrics live on unrelated scales, so each axis gets its own chart.
func RenderAxisTrend(axis models.Axis, values []float64, width, height int) string {
	if len(values) == 0 {
		return styles.HelpStyle.Render(noData)
	}

	width = max(width, 20)
	height = max(height, 3)

	// asciigraph needs two samples to draw a segment.
	if len(values) == 1 {
		values = []float64{values[0], values[0]}
	}

	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(axisColors[axis]),
		asciigraph.Precision(3),
	)
}

// ScatterPoint is one dot of a scatter chart.
type ScatterPoint struct {
	X, Y    float64
	Color   models.RGB
	Focused bool
}

// Scatter glyphs.
const (
	dotGlyph   = '●'
	focusGlyph = '◉'
)

// RenderScatter projects points onto a character grid. Later points draw over
// earlier ones; the focused point always stays visible.
func RenderScatter(points []ScatterPoint, width, height int) string {
	if len(points) == 0 {
		return styles.HelpStyle.Render(noData)
	}

	width = max(width, 10)
	height = max(height, 4)

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if isFinite(p.X) && isFinite(p.Y) {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if len(xs) == 0 {
		return styles.HelpStyle.Render(noData)
	}
	xlo, xhi := models.MinMax(xs)
	ylo, yhi := models.MinMax(ys)

	type cell struct {
		color   models.RGB
		focused bool
		set     bool
	}
	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	for _, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			continue
		}
		col := scale(p.X, xlo, xhi, width)
		row := height - 1 - scale(p.Y, ylo, yhi, height)
		if grid[row][col].focused && !p.Focused {
			continue
		}
		grid[row][col] = cell{color: p.Color, focused: p.Focused, set: true}
	}

	yLabels := []string{formatTick(yhi), formatTick(ylo)}
	labelWidth := max(lipgloss.Width(yLabels[0]), lipgloss.Width(yLabels[1]))

	var b strings.Builder
	for r, row := range grid {
		label := ""
		switch r {
		case 0:
			label = yLabels[0]
		case height - 1:
			label = yLabels[1]
		}
		b.WriteString(fmt.Sprintf("%*s ┤", labelWidth, label))
		for _, c := range row {
			switch {
			case c.focused:
				b.WriteString(styles.FocusMarkerStyle.Render(string(focusGlyph)))
			case c.set:
				b.WriteString(styles.PointStyle(c.color).Render(string(dotGlyph)))
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}

	b.WriteString(strings.Repeat(" ", labelWidth+1) + "└" + strings.Repeat("─", width) + "\n")
	lo, hi := formatTick(xlo), formatTick(xhi)
	gap := max(width-lipgloss.Width(lo)-lipgloss.Width(hi), 1)
	b.WriteString(strings.Repeat(" ", labelWidth+2) + lo + strings.Repeat(" ", gap) + hi)

	return b.String()
}

// scale maps v in [lo,hi] onto 0..n-1.
func scale(v, lo, hi float64, n int) int {
	if hi == lo {
		return n / 2
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(n-1)))
	return min(max(i, 0), n-1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatTick(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

// sparkChars are the sparkline levels, low to high.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline creates a compact inline sparkline chart scaled to the
// value range.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	lo, hi := models.MinMax(values)

	var result strings.Builder
	step := max(float64(len(values))/float64(width), 1)

	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		level := 0
		if hi > lo {
			level = int((val - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		level = min(max(level, 0), len(sparkChars)-1)
		result.WriteRune(sparkChars[level])
	}

	return result.String()
}

// RenderGradientSparkline colours each sparkline bar with its image colour.
func RenderGradientSparkline(values []float64, colors []models.RGB) string {
	plain := []rune(RenderSparkline(values, len(values)))
	var b strings.Builder
	for i, r := range plain {
		if i < len(colors) {
			b.WriteString(styles.PointStyle(colors[i]).Render(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
