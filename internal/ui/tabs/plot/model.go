// Package plot provides the interactive metric plot tab of the CellTrack TUI.
package plot

import (
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/celltrack-tui/internal/app"
	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/ui/components"
)

// scrubStep is how far one keypress moves the timeline marker.
const scrubStep = 16

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*40, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

type keyMap struct {
	ToggleMode    key.Binding
	NextCondition key.Binding
	NextAxis      key.Binding
	NextMetric    key.Binding
	PrevMetric    key.Binding
	Outliers      key.Binding
	ScrubLeft     key.Binding
	ScrubRight    key.Binding
	NextPoint     key.Binding
	PrevPoint     key.Binding
	Leave         key.Binding
	Save          key.Binding
	Export        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleMode: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "average/all cells"),
		),
		NextCondition: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "next condition"),
		),
		NextAxis: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "select axis"),
		),
		NextMetric: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next metric"),
		),
		PrevMetric: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev metric"),
		),
		Outliers: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "hide outliers"),
		),
		ScrubLeft: key.NewBinding(
			key.WithKeys("left", "h", ","),
			key.WithHelp("←/h", "scrub earlier"),
		),
		ScrubRight: key.NewBinding(
			key.WithKeys("right", "l", "."),
			key.WithHelp("→/l", "scrub later"),
		),
		NextPoint: key.NewBinding(
			key.WithKeys("n", "j", "down"),
			key.WithHelp("j/n", "next point"),
		),
		PrevPoint: key.NewBinding(
			key.WithKeys("p", "k", "up"),
			key.WithHelp("k/p", "prev point"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear focus"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save png"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export xlsx"),
		),
	}
}

// Model represents the plot tab state.
type Model struct {
	state          *app.State
	spinner        components.LoadingSpinner
	timeline       components.TimelineBar
	keys           keyMap
	width          int
	height         int
	axis           int
	point          int
	animationFrame int
}

// New creates the plot tab.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		spinner:  components.NewSpinner("Loading plot..."),
		timeline: components.NewTimelineBar(40),
		keys:     defaultKeyMap(),
		point:    -1,
	}
}

// Init initializes the plot tab.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick(), animationTickCmd())
}

// Update handles messages for the plot tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)

	case animationTickMsg:
		m.animationFrame++
		return m, animationTickCmd()

	case components.AnimationTickMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		return m, cmd

	case app.PlotChangedMsg:
		switch msg.Type {
		case binding.EventBindingsReplaced, binding.EventFilterChanged, binding.EventProjectChanged:
			m.point = -1
		}
		m.clamp()
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	snap := m.state.GetSnapshot()
	if snap == nil || !snap.Loaded {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.ToggleMode):
		mode := models.GranularityAllCells
		if snap.Granularity != models.GranularityAverage {
			mode = models.GranularityAverage
		}
		// Switching modes starts over from the default condition.
		return send(app.SetGranularityMsg{Mode: mode, Condition: models.DefaultCondition})

	case key.Matches(msg, m.keys.NextCondition):
		return send(app.SetGranularityMsg{
			Mode:      snap.Granularity,
			Condition: nextCondition(snap.Condition),
			Date:      snap.Date,
		})

	case key.Matches(msg, m.keys.NextAxis):
		if n := len(snap.Bindings); n > 0 {
			m.axis = (m.axis + 1) % n
		}

	case key.Matches(msg, m.keys.NextMetric), key.Matches(msg, m.keys.PrevMetric):
		delta := 1
		if key.Matches(msg, m.keys.PrevMetric) {
			delta = -1
		}
		return m.cycleMetric(snap, delta)

	case key.Matches(msg, m.keys.Outliers):
		if !snap.Granularity.HasOutliers() {
			return send(app.AddNotificationMsg{
				Type:     app.NotificationInfo,
				Message:  "Average mode has no outliers",
				Duration: 3 * time.Second,
			})
		}
		return send(app.ToggleOutliersMsg{Hide: !snap.HideOutliers})

	case key.Matches(msg, m.keys.ScrubLeft):
		return m.scrub(m.timeline.Position() - scrubStep)

	case key.Matches(msg, m.keys.ScrubRight):
		return m.scrub(m.timeline.Position() + scrubStep)

	case key.Matches(msg, m.keys.NextPoint):
		return m.hoverPoint(snap, 1)

	case key.Matches(msg, m.keys.PrevPoint):
		return m.hoverPoint(snap, -1)

	case key.Matches(msg, m.keys.Leave):
		m.point = -1
		return send(app.LeaveMsg{})

	case key.Matches(msg, m.keys.Save):
		return send(app.SavePlotMsg{})

	case key.Matches(msg, m.keys.Export):
		return send(app.ExportMsg{Project: snap.Project})
	}
	return nil
}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// cycleMetric rebinds the selected axis to the neighbouring catalog metric.
func (m *Model) cycleMetric(snap *binding.Snapshot, delta int) tea.Cmd {
	if m.axis >= len(snap.Bindings) {
		return nil
	}
	b := snap.Bindings[m.axis]
	n := len(models.MetricNames)
	i := slices.Index(models.MetricNames, b.Metric())
	if i < 0 {
		i = 0
		delta = 0
	}
	metric := models.MetricNames[(i+delta+n)%n]
	return send(app.SetAxisMetricMsg{Axis: b.Axis, Metric: metric})
}

// scrub moves the timeline marker and focuses the nearest point.
func (m *Model) scrub(pos int) tea.Cmd {
	animate := m.timeline.SetPosition(pos)
	m.point = -1
	return tea.Batch(animate, send(app.ScrubMsg{Position: m.timeline.Position()}))
}

// hoverPoint steps the hover cursor through the plotted points.
func (m *Model) hoverPoint(snap *binding.Snapshot, delta int) tea.Cmd {
	n := len(snap.Points)
	if n == 0 {
		return nil
	}
	if m.point < 0 {
		m.point = 0
		if delta < 0 {
			m.point = n - 1
		}
	} else {
		m.point = (m.point + delta + n) % n
	}
	p := snap.Points[m.point]
	return send(app.HoverMsg{Date: pointDate(snap, p), Cell: p.Cell})
}

// pointDate is the image label a point belongs to.
func pointDate(snap *binding.Snapshot, p binding.Point) string {
	if snap.Granularity == models.GranularitySingleImage {
		return snap.Date
	}
	if p.Image < len(snap.Dates) {
		return snap.Dates[p.Image]
	}
	return ""
}

func nextCondition(c models.Condition) models.Condition {
	i := slices.Index(models.Conditions, c)
	return models.Conditions[(i+1)%len(models.Conditions)]
}

func (m *Model) clamp() {
	snap := m.state.GetSnapshot()
	if snap == nil {
		m.axis, m.point = 0, -1
		return
	}
	if m.axis >= len(snap.Bindings) {
		m.axis = 0
	}
	if m.point >= len(snap.Points) {
		m.point = -1
	}
}

// SetSize sets the available size for the plot tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.timeline.SetWidth(m.plotWidth())
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.ToggleMode, m.keys.NextCondition, m.keys.NextAxis, m.keys.NextMetric,
		m.keys.Outliers, m.keys.ScrubRight, m.keys.NextPoint, m.keys.Save,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleMode, m.keys.NextCondition, m.keys.Outliers},
		{m.keys.NextAxis, m.keys.NextMetric, m.keys.PrevMetric},
		{m.keys.ScrubLeft, m.keys.ScrubRight, m.keys.NextPoint, m.keys.PrevPoint, m.keys.Leave},
		{m.keys.Save, m.keys.Export},
	}
}
