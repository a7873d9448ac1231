// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/celltrack-tui/internal/models"
)

// Palette.
var (
	Primary   = lipgloss.Color("43")  // teal
	Secondary = lipgloss.Color("69")  // cornflower
	Subtle    = lipgloss.Color("240") // gray

	// GradientStart and GradientEnd are the timeline colours of the earliest
	// and latest image.
	GradientStart = lipgloss.Color("#ff0000")
	GradientEnd   = lipgloss.Color("#0000ff")

	Success = lipgloss.Color("42")
	Error   = lipgloss.Color("196")
	Warning = lipgloss.Color("220")
	Info    = lipgloss.Color("39")

	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// Page layout.
var (
	DocStyle = lipgloss.NewStyle().Margin(0, 2)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SubTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary).
			MarginBottom(1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 1).
			MarginBottom(1)

	CardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	// ModalContentStyle frames the project and upload forms.
	ModalContentStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(Primary).
				Padding(1, 2).
				Background(BgDark)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// Text.
var (
	LabelStyle = lipgloss.NewStyle().Width(18).Foreground(TextMuted)
	ValueStyle = lipgloss.NewStyle().Foreground(TextPrimary)

	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)

	HelpStyle          = lipgloss.NewStyle().Foreground(TextMuted)
	HelpKeyStyle       = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	HelpSeparatorStyle = lipgloss.NewStyle().Foreground(Subtle)
	HelpPanelStyle     = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(Primary).
				Padding(1, 3).
				Background(BgDark)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(Secondary).
			Padding(0, 1)
)

// Forms.
var (
	FocusedStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	BlurredStyle = lipgloss.NewStyle().Foreground(TextMuted)

	FocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Primary).
				Padding(0, 1)
	BlurredBorderStyle = FocusedBorderStyle.BorderForeground(Subtle)

	button              = lipgloss.NewStyle().Padding(0, 2).MarginRight(1)
	ButtonActiveStyle   = button.Background(Primary).Foreground(lipgloss.Color("229")).Bold(true)
	ButtonInactiveStyle = button.Background(BgLight).Foreground(TextSecondary)
)

// Lists and tables.
var (
	ListItemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	SelectedListItemStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Padding(0, 1).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(Subtle)
	TableCellStyle     = lipgloss.NewStyle().Padding(0, 1)
	TableSelectedStyle = lipgloss.NewStyle().
				Background(BgAccent).
				Foreground(TextPrimary).
				Bold(true)
)

// Plot.
var (
	AxisXStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	AxisYStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true)
	AxisZStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("177")).Bold(true)
	AxisColorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)

	// FocusMarkerStyle highlights the hovered or scrubbed point.
	FocusMarkerStyle = BadgeStyle.Padding(0).Bold(true)

	OutlierStyle = lipgloss.NewStyle().Foreground(Warning).Italic(true)
)

// HighlightBadge renders a mode tag.
func HighlightBadge(label string) string {
	return BadgeStyle.Render(label)
}

// GetAxisStyle returns the label style of a plot axis.
func GetAxisStyle(axis models.Axis) lipgloss.Style {
	switch axis {
	case models.AxisX:
		return AxisXStyle
	case models.AxisY:
		return AxisYStyle
	case models.AxisZ:
		return AxisZStyle
	default:
		return AxisColorStyle
	}
}

// PointStyle renders text in a gradient colour.
func PointStyle(c models.RGB) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex()))
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
