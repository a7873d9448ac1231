package plot

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"

	"github.com/j-veylop/celltrack-tui/internal/app"
	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

var testDates = []string{"2024-01-01", "2024-01-02", "2024-01-03"}

func series(name string, avg ...float64) models.MetricSeries {
	return models.MetricSeries{Name: name, Granularity: models.GranularityAverage, Average: avg}
}

func averageSnapshot() *binding.Snapshot {
	bindings := []models.AxisBinding{
		{Axis: models.AxisX, Series: series("Area", 1, 2, 3)},
		{Axis: models.AxisY, Series: series("Perimeter", 4, 5, 6)},
		{Axis: models.AxisZ, Series: series("Spikiness", 7, 8, 9)},
	}
	colors := []models.RGB{models.Red, models.GradientColor(0.5), models.GradientColor(1)}
	points := make([]binding.Point, 3)
	for i := range points {
		points[i] = binding.Point{
			Image:  i,
			Cell:   -1,
			Values: []float64{bindings[0].Series.Average[i], bindings[1].Series.Average[i], bindings[2].Series.Average[i]},
			Color:  colors[i],
		}
	}
	return &binding.Snapshot{
		Project:     "Neurons",
		Granularity: models.GranularityAverage,
		Condition:   models.DefaultCondition,
		Dates:       testDates,
		Bindings:    bindings,
		Visible:     bindings,
		Points:      points,
		DateColors:  colors,
		Loaded:      true,
	}
}

func singleImageSnapshot() *binding.Snapshot {
	cells := func(name string, v ...float64) models.AxisBinding {
		return models.AxisBinding{Series: models.MetricSeries{Name: name, Granularity: models.GranularitySingleImage, Cells: [][]float64{v}}}
	}
	bindings := []models.AxisBinding{cells("Area", 1, 2), cells("Perimeter", 3, 4), cells("Spikiness", 5, 6), cells("Entropy", 0.25, 0.75)}
	for i, a := range models.AxesFor(models.GranularitySingleImage) {
		bindings[i].Axis = a
	}
	return &binding.Snapshot{
		Project:     "Neurons",
		Granularity: models.GranularitySingleImage,
		Condition:   models.ConditionMaxRange,
		Date:        "2024-01-02",
		Dates:       testDates,
		Bindings:    bindings,
		Visible:     bindings,
		Points: []binding.Point{
			{Cell: 0, Values: []float64{1, 3, 5, 0.25}, Color: models.Red},
			{Cell: 1, Values: []float64{2, 4, 6, 0.75}, Color: models.GradientColor(1)},
		},
		ColorMin: 0.25,
		ColorMax: 0.75,
		Focus:    models.FocusState{Active: true, Date: "2024-01-02", Cell: 1, Value: 0.75},
		Loaded:   true,
	}
}

func newWith(snap *binding.Snapshot) *Model {
	state := app.NewState()
	state.OpenProject("Neurons")
	state.SetSnapshot(snap)
	m := New(state)
	m.SetSize(140, 50)
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs a command and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, collect(c)...)
	}
	return out
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name string
		snap func() *binding.Snapshot
		keys []string
		want tea.Msg
	}{
		{
			name: "average to all cells",
			snap: averageSnapshot,
			keys: []string{"a"},
			want: app.SetGranularityMsg{Mode: models.GranularityAllCells, Condition: models.DefaultCondition},
		},
		{
			name: "single image back to average",
			snap: singleImageSnapshot,
			keys: []string{"a"},
			want: app.SetGranularityMsg{Mode: models.GranularityAverage, Condition: models.DefaultCondition},
		},
		{
			name: "all cells back to average resets condition",
			snap: func() *binding.Snapshot {
				snap := averageSnapshot()
				snap.Granularity = models.GranularityAllCells
				snap.Condition = models.ConditionMinTimeCorrelation
				return snap
			},
			keys: []string{"a"},
			want: app.SetGranularityMsg{Mode: models.GranularityAverage, Condition: models.DefaultCondition},
		},
		{
			name: "next condition keeps mode and date",
			snap: singleImageSnapshot,
			keys: []string{"m"},
			want: app.SetGranularityMsg{Mode: models.GranularitySingleImage, Condition: models.ConditionMinRange, Date: "2024-01-02"},
		},
		{
			name: "next metric on Y",
			snap: averageSnapshot,
			keys: []string{"v", "]"},
			want: app.SetAxisMetricMsg{Axis: models.AxisY, Metric: "Area"},
		},
		{
			name: "previous metric wraps",
			snap: func() *binding.Snapshot {
				snap := averageSnapshot()
				snap.Bindings[0].Series.Name = models.MetricNames[0]
				return snap
			},
			keys: []string{"v", "v", "v", "["},
			want: app.SetAxisMetricMsg{Axis: models.AxisX, Metric: models.MetricNames[len(models.MetricNames)-1]},
		},
		{
			name: "hide outliers",
			snap: singleImageSnapshot,
			keys: []string{"o"},
			want: app.ToggleOutliersMsg{Hide: true},
		},
		{
			name: "hover first point",
			snap: averageSnapshot,
			keys: []string{"j"},
			want: app.HoverMsg{Date: "2024-01-01", Cell: -1},
		},
		{
			name: "hover backwards wraps to last",
			snap: averageSnapshot,
			keys: []string{"k"},
			want: app.HoverMsg{Date: "2024-01-03", Cell: -1},
		},
		{
			name: "hover in single image uses its date",
			snap: singleImageSnapshot,
			keys: []string{"j", "j"},
			want: app.HoverMsg{Date: "2024-01-02", Cell: 1},
		},
		{name: "leave", snap: averageSnapshot, keys: []string{"esc"}, want: app.LeaveMsg{}},
		{name: "save", snap: averageSnapshot, keys: []string{"s"}, want: app.SavePlotMsg{}},
		{name: "export", snap: averageSnapshot, keys: []string{"e"}, want: app.ExportMsg{Project: "Neurons"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newWith(tt.snap())
			var cmd tea.Cmd
			for _, k := range tt.keys {
				_, cmd = m.Update(keyPress(k))
			}
			msgs := collect(cmd)
			if len(msgs) != 1 {
				t.Fatalf("got %d messages, want 1: %#v", len(msgs), msgs)
			}
			if diff := cmp.Diff(tt.want, msgs[0]); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestModel_OutliersInAverageMode(t *testing.T) {
	m := newWith(averageSnapshot())
	_, cmd := m.Update(keyPress("o"))
	msg, ok := cmd().(app.AddNotificationMsg)
	if !ok || msg.Type != app.NotificationInfo {
		t.Errorf("o in average mode = %#v, want info notification", msg)
	}
}

func TestModel_Scrub(t *testing.T) {
	m := newWith(averageSnapshot())

	var scrubs []app.ScrubMsg
	for _, k := range []string{"right", "right", "left", "left", "left"} {
		_, cmd := m.Update(keyPress(k))
		for _, msg := range collect(cmd) {
			if s, ok := msg.(app.ScrubMsg); ok {
				scrubs = append(scrubs, s)
			}
		}
	}

	want := []app.ScrubMsg{{Position: 16}, {Position: 32}, {Position: 16}, {Position: 0}, {Position: 0}}
	if diff := cmp.Diff(want, scrubs); diff != "" {
		t.Errorf("scrub positions mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_KeysIgnoredWithoutPlot(t *testing.T) {
	state := app.NewState()
	state.OpenProject("Neurons")
	m := New(state)
	for _, k := range []string{"a", "m", "]", "o", "j", "s"} {
		if _, cmd := m.Update(keyPress(k)); cmd != nil {
			t.Errorf("key %q should be ignored before the plot loads", k)
		}
	}
}

func TestModel_PlotChangedResetsPoint(t *testing.T) {
	m := newWith(averageSnapshot())
	m.Update(keyPress("j"))
	m.Update(keyPress("j"))
	if m.point != 1 {
		t.Fatalf("point = %d, want 1", m.point)
	}

	m.Update(app.PlotChangedMsg{Type: binding.EventFocusChanged})
	if m.point != 1 {
		t.Error("focus changes should keep the hover cursor")
	}
	m.Update(app.PlotChangedMsg{Type: binding.EventBindingsReplaced})
	if m.point != -1 {
		t.Error("new bindings should reset the hover cursor")
	}
}

func TestIsFocused(t *testing.T) {
	avg := averageSnapshot()
	cells := averageSnapshot()
	cells.Granularity = models.GranularityAllCells
	single := singleImageSnapshot()

	tests := []struct {
		name  string
		snap  *binding.Snapshot
		focus models.FocusState
		point binding.Point
		want  bool
	}{
		{"inactive", avg, models.FocusState{Date: "2024-01-01", Cell: -1}, binding.Point{Image: 0, Cell: -1}, false},
		{"average match", avg, models.FocusState{Active: true, Date: "2024-01-02", Cell: -1}, binding.Point{Image: 1, Cell: -1}, true},
		{"average other image", avg, models.FocusState{Active: true, Date: "2024-01-02", Cell: -1}, binding.Point{Image: 0, Cell: -1}, false},
		{"scrubbed image lights its cells", cells, models.FocusState{Active: true, Date: "2024-01-03", Cell: -1}, binding.Point{Image: 2, Cell: 4}, true},
		{"hovered cell only", cells, models.FocusState{Active: true, Date: "2024-01-03", Cell: 3}, binding.Point{Image: 2, Cell: 4}, false},
		{"single image cell", single, models.FocusState{Active: true, Date: "2024-01-02", Cell: 1}, binding.Point{Cell: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.snap.Focus = tt.focus
			if got := isFocused(tt.snap, tt.point); got != tt.want {
				t.Errorf("isFocused() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModel_View(t *testing.T) {
	t.Run("no project", func(t *testing.T) {
		m := New(app.NewState())
		m.SetSize(80, 24)
		if view := ansi.Strip(m.View()); !strings.Contains(view, "Open a project") {
			t.Errorf("View() = %q", view)
		}
	})

	t.Run("loading", func(t *testing.T) {
		state := app.NewState()
		state.OpenProject("Neurons")
		state.SetLoading(app.ResourcePlot, true)
		m := New(state)
		m.SetSize(80, 24)
		if view := ansi.Strip(m.View()); !strings.Contains(view, "Loading plot") {
			t.Errorf("View() = %q", view)
		}
	})

	t.Run("empty project", func(t *testing.T) {
		m := newWith(&binding.Snapshot{Project: "Neurons", Loaded: true, Empty: true})
		if view := ansi.Strip(m.View()); !strings.Contains(view, binding.PlaceholderText) {
			t.Errorf("View() = %q", view)
		}
	})

	t.Run("average", func(t *testing.T) {
		view := ansi.Strip(newWith(averageSnapshot()).View())
		for _, want := range []string{"Neurons", "average", "Max Variance", "Area", "Perimeter", "Spikiness", "Sample", "2024-01-01", "2024-01-03", "over time"} {
			if !strings.Contains(view, want) {
				t.Errorf("View() missing %q", want)
			}
		}
	})

	t.Run("single image focus", func(t *testing.T) {
		view := ansi.Strip(newWith(singleImageSnapshot()).View())
		for _, want := range []string{"single-image", "image 2024-01-02", "2024-01-02  cell 1", "value 0.75", "Entropy", "0.25", "loading cell..."} {
			if !strings.Contains(view, want) {
				t.Errorf("View() missing %q", want)
			}
		}
	})
}

func TestNextCondition(t *testing.T) {
	if got := nextCondition(models.ConditionPrincipalComponents); got != models.ConditionMaxVariance {
		t.Errorf("nextCondition wraps to %q", got)
	}
	if got := nextCondition(models.ConditionMaxVariance); got != models.ConditionMinVariance {
		t.Errorf("nextCondition(MaxVariance) = %q", got)
	}
}
