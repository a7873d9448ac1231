package info

import (
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/celltrack-tui/internal/services"
	"github.com/j-veylop/celltrack-tui/internal/ui/components"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
	"github.com/j-veylop/celltrack-tui/internal/version"
)

// maxEndpoints caps the endpoint rows of the journal card.
const maxEndpoints = 8

// View renders the info tab.
func (m *Model) View() string {
	m.viewport.SetContent(m.content())

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) content() string {
	stats := m.state.GetStats()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderCatalogCard(stats),
		m.renderJournalCard(stats),
		m.renderAboutCard(),
	)
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 96)
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, backend traffic and build information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderConfigCard renders the configuration card.
func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if m.config == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	inbox := m.config.InboxDir
	if inbox == "" {
		inbox = "disabled"
	}
	notify := "off"
	if m.config.NotifyEnabled {
		notify = "on"
	}

	rows = append(rows,
		row("Backend", m.config.BackendURL),
		row("Request Timeout", m.config.RequestTimeout.String()),
		row("Hover Debounce", m.config.HoverDebounce.String()),
		row("Database", m.config.DatabasePath),
		row("Export Folder", m.config.ExportDir),
		row("Inbox Folder", inbox),
		row("Notifications", notify),
		row("Project Refresh", m.config.RefreshInterval.String()),
		row("Journal Retention", m.config.JournalRetention.String()),
		row("Log File", m.config.LogPath+" ("+m.config.LogLevel+")"),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderCatalogCard(stats *services.StatsEvent) string {
	rows := []string{styles.CardTitleStyle.Render("Catalog"), ""}
	if stats == nil {
		rows = append(rows, styles.HelpStyle.Render("No statistics yet. Press r to load them."))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	c := stats.Catalog
	lastFetch := "never"
	if !c.LastFetch.IsZero() {
		lastFetch = formatAgo(time.Since(c.LastFetch))
	}
	rows = append(rows,
		row("Projects", fmt.Sprintf("%d (%d with images)", c.Projects, c.WithImages)),
		row("Cached Covers", fmt.Sprintf("%d (%s)", c.CachedCovers, formatBytes(int64(c.CoverBytes)))),
		row("Last Fetch", lastFetch),
	)
	if stats.Inbox != "" {
		rows = append(rows, row("Watching", stats.Inbox))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderJournalCard summarizes the local request journal.
func (m *Model) renderJournalCard(stats *services.StatsEvent) string {
	rows := []string{styles.CardTitleStyle.Render("Backend Requests"), ""}
	if stats == nil || stats.Journal == nil || stats.Journal.Totals.TotalCalls == 0 {
		rows = append(rows, styles.HelpStyle.Render("No requests recorded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	j := stats.Journal
	t := j.Totals
	failures := fmt.Sprintf("%d (%.1f%%)", t.Failures, t.FailureRate()*100)
	if t.Failures > 0 {
		failures = styles.WarningTextStyle.Render(failures)
	}
	rows = append(rows,
		row("Calls", fmt.Sprintf("%d across %d projects", t.TotalCalls, t.Projects)),
		row("Failures", failures),
		row("Avg Latency", fmt.Sprintf("%.0f ms", t.AvgDurationMs)),
		row("Transferred", formatBytes(t.TotalBytes)),
	)

	if len(j.Recent) > 0 {
		durations := make([]float64, len(j.Recent))
		// Recent is newest first; the sparkline reads left to right.
		for i, c := range j.Recent {
			durations[len(j.Recent)-1-i] = float64(c.DurationMs)
		}
		rows = append(rows, row("Recent Latency", styles.InfoTextStyle.Render(components.RenderSparkline(durations, 40))))
	}

	if slow, ok := j.SlowestEndpoint(); ok {
		rows = append(rows, row("Slowest", fmt.Sprintf("%s (%.0f ms)", slow.Endpoint, slow.AvgDurationMs)))
	}

	if len(j.Endpoints) > 0 {
		rows = append(rows, "", styles.SubTitleStyle.Render("Endpoints"))
		header := fmt.Sprintf("%-28s %7s %8s %9s", "ENDPOINT", "CALLS", "FAILED", "AVG MS")
		rows = append(rows, styles.TableHeaderStyle.Render(header))
		for i, e := range j.Endpoints {
			if i == maxEndpoints {
				rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("... %d more", len(j.Endpoints)-maxEndpoints)))
				break
			}
			rows = append(rows, fmt.Sprintf("%-28s %7d %8d %9.0f", truncate(e.Endpoint, 28), e.Calls, e.Failures, e.AvgDurationMs))
		}
	}

	if !j.UpdatedAt.IsZero() {
		rows = append(rows, "", styles.HelpStyle.Render("Updated "+j.UpdatedAt.Format("15:04:05")))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderAboutCard renders the version information card.
func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About CellTrack TUI"),
		"",
		row("Version", version.GetVersion()),
		row("Build Date", version.GetDate()),
		row("Git Commit", version.GetCommit()),
		row("Go Version", runtime.Version()),
		row("Platform", version.Platform()),
		"",
		fmt.Sprintf("Projects: %s", styles.InfoTextStyle.Render(fmt.Sprintf("%d", m.state.GetProjectCount()))),
	}
	if p := m.state.GetProject(); p != "" {
		rows = append(rows, fmt.Sprintf("Open: %s", styles.InfoTextStyle.Render(p)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// row renders a key-value row.
func row(label, value string) string {
	return styles.LabelStyle.Render(label+":") + " " + styles.ValueStyle.Render(value)
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
