package components

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestTimelineBar_SetPosition(t *testing.T) {
	bar := NewTimelineBar(30)

	tests := []struct {
		in, want int
	}{
		{128, 128},
		{-5, 0},
		{999, MaxPosition},
	}
	for _, tt := range tests {
		bar.SetPosition(tt.in)
		if got := bar.Position(); got != tt.want {
			t.Errorf("SetPosition(%d) -> Position() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimelineBar_Animation(t *testing.T) {
	bar := NewTimelineBar(30)
	if cmd := bar.SetPosition(200); cmd == nil {
		t.Fatal("SetPosition should start the animation")
	}
	if cmd := bar.SetPosition(100); cmd != nil {
		t.Error("a running animation should not start a second tick loop")
	}

	for range 100 {
		var cmd tea.Cmd
		bar, cmd = bar.Update(AnimationTickMsg(time.Now()))
		if cmd == nil {
			break
		}
	}
	if bar.isAnimating || bar.current != 100 {
		t.Errorf("animation ended at %v (animating=%v), want 100", bar.current, bar.isAnimating)
	}

	if _, cmd := bar.Update(AnimationTickMsg(time.Now())); cmd != nil {
		t.Error("idle bar should ignore ticks")
	}
}

func TestTimelineBar_View(t *testing.T) {
	bar := NewTimelineBar(20)
	view := ansi.Strip(bar.View("2024-01-01", "2024-03-01"))
	lines := strings.Split(view, "\n")
	if len(lines) != 3 {
		t.Fatalf("View has %d lines, want 3", len(lines))
	}
	if strings.Index(lines[1], "▲") != 0 {
		t.Errorf("marker should start at the left edge: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2024-01-01") || !strings.HasSuffix(strings.TrimRight(lines[2], " "), "2024-03-01") {
		t.Errorf("labels = %q", lines[2])
	}
}

func TestMarkerColumn(t *testing.T) {
	tests := []struct {
		p, width, want int
	}{
		{0, 11, 0},
		{MaxPosition, 11, 10},
		{128, 11, 5},
		{50, 1, 0},
	}
	for _, tt := range tests {
		if got := markerColumn(tt.p, tt.width); got != tt.want {
			t.Errorf("markerColumn(%d, %d) = %d, want %d", tt.p, tt.width, got, tt.want)
		}
		if tt.width > 1 && tt.p%MaxPosition == 0 {
			if back := PositionForColumn(tt.want, tt.width); back != tt.p {
				t.Errorf("PositionForColumn(%d, %d) = %d, want %d", tt.want, tt.width, back, tt.p)
			}
		}
	}
}

func TestRenderLegendBar(t *testing.T) {
	got := ansi.Strip(RenderLegendBar(0.1234567, 9.87654321, 40))
	if !strings.HasPrefix(got, "0.12346") || !strings.HasSuffix(got, "9.87654") {
		t.Errorf("RenderLegendBar() = %q", got)
	}
	if w := lipgloss.Width(got); w != 40 {
		t.Errorf("width = %d, want 40", w)
	}
}

func TestRenderLoadingBar(t *testing.T) {
	if got := ansi.Strip(RenderLoadingBar(30, 7)); lipgloss.Width(got) != 30 {
		t.Errorf("loading bar width = %d, want 30", lipgloss.Width(got))
	}
	if got := RenderGradientBar(0); got != "" {
		t.Errorf("zero-width gradient = %q", got)
	}
}
