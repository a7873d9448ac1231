package gallery

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/imaging"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

const (
	previewCols = 40
	previewRows = 14
	listWidth   = 30
)

// View renders the gallery tab.
func (m *Model) View() string {
	project := m.state.GetProject()
	if project == "" {
		return styles.CenterBoth(
			styles.HelpStyle.Render("Open a project from the Projects tab to browse its images."),
			m.width, m.height)
	}

	sections := []string{m.renderTitle(project)}
	switch {
	case m.uploading:
		sections = append(sections, m.renderForm(project))
	case len(m.state.GetDates()) == 0:
		sections = append(sections, styles.CardStyle.Render(
			styles.SubTitleStyle.Render(binding.PlaceholderText)+"\n"+
				styles.InfoTextStyle.Render("Press 'u' to upload an image and its segmentation")))
	default:
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderList(), " ", m.renderPreview()))
	}
	return styles.DocStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderTitle(project string) string {
	title := styles.TitleStyle.Render("Gallery: " + project)
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d images, earliest in red, latest in blue", len(m.state.GetDates())))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderList shows a window of dates around the cursor with their gradient swatch.
func (m *Model) renderList() string {
	dates := m.state.GetDates()
	colors := m.dateColors(len(dates))

	visible := max(m.height-8, 3)
	start := max(0, min(m.cursor-visible/2, len(dates)-visible))
	end := min(start+visible, len(dates))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		swatch := "■"
		if colors != nil {
			swatch = styles.PointStyle(colors[i]).Render(swatch)
		}
		line := fmt.Sprintf("%s %s", swatch, dates[i])
		if i == m.cursor {
			rows = append(rows, styles.SelectedListItemStyle.Render("> ")+line)
		} else {
			rows = append(rows, styles.ListItemStyle.Render(line))
		}
	}
	return styles.CardStyle.Width(listWidth).Render(strings.Join(rows, "\n"))
}

// dateColors returns the gradient colours when they line up with the dates.
func (m *Model) dateColors(n int) []models.RGB {
	snap := m.state.GetSnapshot()
	if snap == nil || len(snap.DateColors) != n {
		return nil
	}
	return snap.DateColors
}

// renderPreview shows the selected image once its hover fetch has landed.
// The first image is available immediately from the plot sample.
func (m *Model) renderPreview() string {
	selected := m.Selected()
	rows := []string{styles.CardTitleStyle.Render(selected)}

	var data []byte
	if snap := m.state.GetSnapshot(); snap != nil {
		switch {
		case snap.Focus.Date == selected && snap.Focus.Cell < 0 && len(snap.Focus.WholeImage) > 0:
			data = snap.Focus.WholeImage
		case m.cursor == 0 && len(snap.Sample) > 0:
			data = snap.Sample
		}
	}

	if data == nil {
		rows = append(rows, styles.CenterBoth(styles.HelpStyle.Render("move the cursor here to load"), previewCols, previewRows))
	} else if preview, err := imaging.Preview(data, previewCols, previewRows); err != nil {
		rows = append(rows, styles.ErrorTextStyle.Render(err.Error()))
	} else {
		rows = append(rows, preview)
	}

	rows = append(rows, "", styles.HelpStyle.Render("enter: analyze cells of this image"))
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderForm(project string) string {
	cardWidth := min(max(m.width-10, 50), 90)
	labels := [fieldSubmit]string{"Image", "Segmentation (.csv)", "Captured"}

	rows := []string{styles.CardTitleStyle.Render("Upload to " + project), ""}
	for i, label := range labels {
		focused := m.focusedField == formField(i)
		labelStr := styles.BlurredStyle.Render("  " + label + ":")
		border := styles.BlurredBorderStyle
		if focused {
			labelStr = styles.FocusedStyle.Render("> " + label + ":")
			border = styles.FocusedBorderStyle
		}
		rows = append(rows, labelStr, border.Width(cardWidth-10).Render(m.inputs[i].View()))
	}

	submitStyle := styles.ButtonInactiveStyle
	cancelStyle := styles.ButtonInactiveStyle
	if m.focusedField == fieldSubmit {
		submitStyle = styles.ButtonActiveStyle
	}
	if m.focusedField == fieldCancel {
		cancelStyle = styles.ButtonActiveStyle
	}
	rows = append(rows, "",
		lipgloss.JoinHorizontal(lipgloss.Center, submitStyle.Render(" Upload "), "  ", cancelStyle.Render(" Cancel ")),
		"",
		styles.HelpStyle.Render("Leave the capture date empty to let the backend stamp it."),
	)

	return styles.ModalContentStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
