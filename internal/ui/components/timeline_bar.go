package components

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

// MaxPosition is the right end of the timeline scale.
const MaxPosition = 255

// AnimationTickMsg advances the timeline marker animation.
type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// TimelineBar is the red→blue scrub control under the plot. The marker
// glides toward the requested position.
type TimelineBar struct {
	progress    progress.Model
	target      int
	current     float64
	isAnimating bool
}

// NewTimelineBar creates a timeline bar with the plot's gradient.
func NewTimelineBar(width int) TimelineBar {
	p := progress.New(
		progress.WithScaledGradient(string(styles.GradientStart), string(styles.GradientEnd)),
		progress.WithWidth(max(width, 10)),
		progress.WithoutPercentage(),
	)
	return TimelineBar{progress: p}
}

// Init initializes the bar.
func (t TimelineBar) Init() tea.Cmd {
	return nil
}

// Update handles marker animation messages.
func (t TimelineBar) Update(msg tea.Msg) (TimelineBar, tea.Cmd) {
	if _, ok := msg.(AnimationTickMsg); !ok || !t.isAnimating {
		return t, nil
	}

	diff := float64(t.target) - t.current
	if math.Abs(diff) < 1 {
		t.current = float64(t.target)
		t.isAnimating = false
		return t, nil
	}

	step := diff / 4
	if math.Abs(step) < 1 {
		step = math.Copysign(1, diff)
	}
	t.current += step
	return t, animationTick()
}

// SetPosition moves the marker to p, clamped to 0..MaxPosition.
func (t *TimelineBar) SetPosition(p int) tea.Cmd {
	t.target = min(max(p, 0), MaxPosition)
	if t.isAnimating {
		return nil
	}
	t.isAnimating = true
	return animationTick()
}

// Position returns the requested marker position.
func (t TimelineBar) Position() int {
	return t.target
}

// SetWidth sets the bar width.
func (t *TimelineBar) SetWidth(width int) {
	t.progress.Width = max(width, 10)
}

// View renders the gradient with the marker beneath it and the range labels
// at both ends.
func (t TimelineBar) View(lo, hi string) string {
	width := t.progress.Width
	bar := t.progress.ViewAs(1)

	col := markerColumn(int(math.Round(t.current)), width)
	marker := strings.Repeat(" ", col) + styles.FocusMarkerStyle.Render("▲")

	gap := max(width-lipgloss.Width(lo)-lipgloss.Width(hi), 1)
	labels := styles.HelpStyle.Render(lo + strings.Repeat(" ", gap) + hi)

	return lipgloss.JoinVertical(lipgloss.Left, bar, marker, labels)
}

// markerColumn maps a 0..MaxPosition position onto a bar of the given width.
func markerColumn(p, width int) int {
	if width <= 1 {
		return 0
	}
	col := int(math.Round(float64(p) / MaxPosition * float64(width-1)))
	return min(max(col, 0), width-1)
}

// PositionForColumn is the inverse of the marker mapping.
func PositionForColumn(col, width int) int {
	if width <= 1 {
		return 0
	}
	p := int(math.Round(float64(col) / float64(width-1) * MaxPosition))
	return min(max(p, 0), MaxPosition)
}

// RenderGradientBar renders the legend gradient with the exact colours points
// are drawn in.
func RenderGradientBar(width int) string {
	if width < 1 {
		return ""
	}

	var b strings.Builder
	for i := range width {
		c := models.LegendColor(PositionForColumn(i, width))
		b.WriteString(styles.PointStyle(c).Render("█"))
	}
	return b.String()
}

// RenderLegendBar renders the colour-metric legend of single-image plots:
// the gradient flanked by the rounded bounds.
func RenderLegendBar(lo, hi float64, width int) string {
	loStr := models.LegendValue(lo)
	hiStr := models.LegendValue(hi)
	barWidth := max(width-lipgloss.Width(loStr)-lipgloss.Width(hiStr)-2, 5)

	return lipgloss.JoinHorizontal(lipgloss.Center,
		styles.HelpStyle.Render(loStr), " ",
		RenderGradientBar(barWidth), " ",
		styles.HelpStyle.Render(hiStr),
	)
}

// RenderLoadingBar renders a shimmering placeholder while a plot is fetched.
func RenderLoadingBar(width, frame int) string {
	width = max(width, 10)
	const cycle = 120

	t := float64(frame%cycle) / cycle
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(width))

	var b strings.Builder
	for i := range width {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}

		switch {
		case dist < 3:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render("▓"))
		case dist < 5:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}
	return b.String()
}
