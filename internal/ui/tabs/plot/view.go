package plot

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/celltrack-tui/internal/app"
	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/imaging"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/ui/components"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

// Focus panel image sizes in terminal cells.
const (
	previewCols = 36
	previewRows = 12
	cropCols    = 16
	cropRows    = 8
)

// View renders the plot tab.
func (m *Model) View() string {
	if m.state.GetProject() == "" {
		return styles.CenterBoth(
			styles.HelpStyle.Render("Open a project from the Projects tab to plot its metrics."),
			m.width, m.height)
	}

	snap := m.state.GetSnapshot()
	if snap == nil || !snap.Loaded {
		if m.state.IsLoading(app.ResourcePlot) {
			return m.renderLoading()
		}
		return styles.CenterBoth(
			styles.HelpStyle.Render("Plot unavailable. Reopen the project from the Projects tab."),
			m.width, m.height)
	}

	sections := []string{m.renderHeader(snap)}
	if !snap.Ready() {
		sections = append(sections, styles.CardStyle.Render(
			styles.SubTitleStyle.Render(binding.PlaceholderText)+"\n"+
				styles.HelpStyle.Render("Upload images from the Gallery tab.")))
		return styles.DocStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderAxes(snap),
		styles.CardStyle.Render(m.renderChart(snap)),
		m.renderTimeline(snap),
	)
	body := left
	if m.wide() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.renderFocus(snap))
	}
	sections = append(sections, body)

	return styles.DocStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) wide() bool {
	return m.width >= 110
}

// plotWidth is the width available to the chart column.
func (m *Model) plotWidth() int {
	if m.wide() {
		return max(m.width-previewCols-16, 30)
	}
	return max(m.width-10, 30)
}

func (m *Model) renderLoading() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		m.spinner.View(),
		"",
		components.RenderLoadingBar(min(m.plotWidth(), 60), m.animationFrame),
	)
	return styles.CenterBoth(content, m.width, m.height)
}

func (m *Model) renderHeader(snap *binding.Snapshot) string {
	title := styles.TitleStyle.Render(snap.Project)

	parts := []string{
		styles.HighlightBadge(snap.Granularity.String()),
		styles.ValueStyle.Render(string(snap.Condition)),
	}
	if snap.Granularity == models.GranularitySingleImage {
		parts = append(parts, styles.ValueStyle.Render("image "+snap.Date))
	}
	if snap.HideOutliers {
		parts = append(parts, styles.OutlierStyle.Render("outliers hidden"))
	}
	if m.state.IsLoading(app.ResourcePlot) {
		parts = append(parts, m.spinner.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(parts, styles.HelpSeparatorStyle.Render(" | ")), "")
}

// renderAxes lists the bound metrics, marking the axis the metric keys act on.
func (m *Model) renderAxes(snap *binding.Snapshot) string {
	rows := make([]string, 0, len(snap.Bindings))
	for i, b := range snap.Bindings {
		marker := "  "
		if i == m.axis {
			marker = styles.FocusedStyle.Render("▸ ")
		}
		label := styles.GetAxisStyle(b.Axis).Width(6).Render(b.Axis.String())
		line := marker + label + " " + b.Metric()

		visible, _ := snap.VisibleBinding(b.Axis)
		switch {
		case snap.Granularity == models.GranularityAverage:
			line += "  " + components.RenderGradientSparkline(visible.Series.Average, snap.DateColors)
		case b.Axis == models.AxisColor:
			line += "  " + components.RenderLegendBar(snap.ColorMin, snap.ColorMax, 32)
		default:
			line += styles.HelpStyle.Render(fmt.Sprintf("  %d values", countValues(visible.Series)))
		}
		rows = append(rows, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func countValues(s models.MetricSeries) int {
	n := 0
	for _, c := range s.Cells {
		n += len(c)
	}
	return n
}

// renderChart draws the X/Y scatter, and in average mode the trend of the
// selected axis across images.
func (m *Model) renderChart(snap *binding.Snapshot) string {
	width := m.plotWidth()
	height := max(m.height-22, 6)

	points := make([]components.ScatterPoint, 0, len(snap.Points))
	for i, p := range snap.Points {
		if len(p.Values) < 2 {
			continue
		}
		points = append(points, components.ScatterPoint{
			X:       p.Values[0],
			Y:       p.Values[1],
			Color:   p.Color,
			Focused: i == m.point || isFocused(snap, p),
		})
	}

	chart := components.RenderScatter(points, width, height)
	if snap.Granularity != models.GranularityAverage || m.axis >= len(snap.Visible) {
		return chart
	}

	b := snap.Visible[m.axis]
	trend := components.RenderAxisTrend(b.Axis, b.Series.Average, width, 4)
	caption := styles.GetAxisStyle(b.Axis).Render(b.Axis.String()) + styles.HelpStyle.Render(" over time")
	return lipgloss.JoinVertical(lipgloss.Left, chart, "", caption, trend)
}

// isFocused reports whether a point is the hovered or scrubbed observation.
// Image-level focus in cell modes highlights every cell of that image.
func isFocused(snap *binding.Snapshot, p binding.Point) bool {
	f := snap.Focus
	if !f.Active {
		return false
	}
	if snap.Granularity == models.GranularitySingleImage {
		return p.Cell == f.Cell
	}
	if pointDate(snap, p) != f.Date {
		return false
	}
	return f.Cell < 0 || p.Cell == f.Cell
}

func (m *Model) renderTimeline(snap *binding.Snapshot) string {
	var lo, hi string
	if snap.Granularity == models.GranularitySingleImage {
		lo, hi = models.LegendValue(snap.ColorMin), models.LegendValue(snap.ColorMax)
	} else if n := len(snap.Dates); n > 0 {
		lo, hi = snap.Dates[0], snap.Dates[n-1]
	}
	return m.timeline.View(lo, hi)
}

// renderFocus shows the images of the focused point, or the sample image
// before anything is focused.
func (m *Model) renderFocus(snap *binding.Snapshot) string {
	f := snap.Focus
	if !f.Active {
		rows := []string{styles.CardTitleStyle.Render("Sample")}
		if len(snap.Dates) > 0 {
			rows = append(rows, styles.HelpStyle.Render(snap.Dates[0]))
		}
		rows = append(rows, preview(snap.Sample, previewCols, previewRows, "loading sample..."))
		return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	title := f.Date
	if f.Cell >= 0 {
		title = fmt.Sprintf("%s  cell %d", f.Date, f.Cell)
	}
	rows := []string{styles.CardTitleStyle.Render(title)}
	if snap.Granularity == models.GranularitySingleImage && f.Cell >= 0 {
		rows = append(rows, styles.AxisColorStyle.Render("value ")+models.LegendValue(f.Value))
	}
	rows = append(rows, preview(f.WholeImage, previewCols, previewRows, "loading image..."))
	if f.Cell >= 0 {
		rows = append(rows, "", preview(f.CellImage, cropCols, cropRows, "loading cell..."))
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func preview(data []byte, cols, rows int, pending string) string {
	if len(data) == 0 {
		return styles.CenterBoth(styles.HelpStyle.Render(pending), cols, rows)
	}
	out, err := imaging.Preview(data, cols, rows)
	if err != nil {
		return styles.ErrorTextStyle.Render(err.Error())
	}
	return out
}
