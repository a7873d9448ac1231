package projects

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/celltrack-tui/internal/imaging"
	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/ui/components"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

// Cover preview size in terminal cells.
const (
	previewCols = 32
	previewRows = 12
)

// View renders the projects tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	sections := []string{m.renderTitle()}

	if m.creating {
		sections = append(sections, m.renderForm())
	} else {
		sections = append(sections, m.renderBody())
	}
	sections = append(sections, m.renderFooter())

	return styles.DocStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Projects")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d projects", m.state.GetProjectCount()))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderBody() string {
	if m.state.GetProjectCount() == 0 {
		return m.renderEmptyState()
	}

	m.updateTableData()
	tableCard := styles.CardStyle.Render(m.table.View())

	if m.width < 100 {
		return tableCard
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tableCard, " ", m.renderCover())
}

// renderCover draws the selected project's cover image.
func (m *Model) renderCover() string {
	title := m.Selected()
	rows := []string{styles.CardTitleStyle.Render(truncate(title, previewCols))}

	var cover []byte
	if m.covers != nil && title != "" {
		cover = m.covers.Cover(title)
	}

	if len(cover) == 0 {
		rows = append(rows, styles.CenterBoth(styles.HelpStyle.Render("no cover"), previewCols, previewRows))
	} else if preview, err := imaging.Preview(cover, previewCols, previewRows); err != nil {
		logger.Debug("cover preview failed", "project", title, "error", err)
		rows = append(rows, styles.CenterBoth(styles.ErrorTextStyle.Render("unreadable cover"), previewCols, previewRows))
	} else {
		rows = append(rows, preview)
	}

	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderEmptyState() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No Projects Yet"),
		styles.HelpStyle.Render("Projects group the images of one experiment."),
		"",
		styles.InfoTextStyle.Render("Press 'n' to create a project"),
		"",
	)
	return styles.CardStyle.Width(max(m.width-8, 40)).Render(content)
}

func (m *Model) renderForm() string {
	cardWidth := min(max(m.width-10, 50), 80)

	rows := []string{styles.CardTitleStyle.Render("New Project"), ""}
	rows = append(rows, m.renderField("Title", m.focusedField == fieldTitle, m.titleInput.View(), cardWidth)...)
	rows = append(rows, m.renderField("Description", m.focusedField == fieldDescription, m.descInput.View(), cardWidth)...)

	submitStyle := styles.ButtonInactiveStyle
	cancelStyle := styles.ButtonInactiveStyle
	if m.focusedField == fieldSubmit {
		submitStyle = styles.ButtonActiveStyle
	}
	if m.focusedField == fieldCancel {
		cancelStyle = styles.ButtonActiveStyle
	}
	rows = append(rows,
		lipgloss.JoinHorizontal(lipgloss.Center, submitStyle.Render(" Create "), "  ", cancelStyle.Render(" Cancel ")),
	)

	return styles.ModalContentStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderField(label string, focused bool, input string, cardWidth int) []string {
	labelStr := styles.BlurredStyle.Render("  " + label + ":")
	border := styles.BlurredBorderStyle
	if focused {
		labelStr = styles.FocusedStyle.Render("> " + label + ":")
		border = styles.FocusedBorderStyle
	}
	return []string{labelStr, border.Width(cardWidth - 10).Render(input), ""}
}

func (m *Model) renderFooter() string {
	var shortcuts []string
	if m.creating {
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Tab") + " next",
			styles.HelpKeyStyle.Render("Enter") + " submit",
			styles.HelpKeyStyle.Render("Esc") + " cancel",
		}
	} else {
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Enter") + " open",
			styles.HelpKeyStyle.Render("n") + " new",
			styles.HelpKeyStyle.Render("e") + " export",
			styles.HelpKeyStyle.Render("r") + " refresh",
		}
	}
	return lipgloss.NewStyle().MarginTop(1).Render(
		strings.Join(shortcuts, styles.HelpSeparatorStyle.Render(" | ")),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
