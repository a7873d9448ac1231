// Package projects provides the project grid tab of the CellTrack TUI.
package projects

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/celltrack-tui/internal/app"
	"github.com/j-veylop/celltrack-tui/internal/ui/components"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

// CoverSource returns the cached cover image of a project, or nil.
type CoverSource interface {
	Cover(title string) []byte
}

// formField represents which field is currently focused in the new-project form.
type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldSubmit
	fieldCancel
	fieldCount
)

type keyMap struct {
	Open   key.Binding
	New    key.Binding
	Export key.Binding
	Escape key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open plot"),
		),
		New: key.NewBinding(
			key.WithKeys("n", "a"),
			key.WithHelp("n", "new project"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export xlsx"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Model represents the projects tab state.
type Model struct {
	state        *app.State
	covers       CoverSource
	table        table.Model
	width        int
	height       int
	creating     bool
	focusedField formField
	titleInput   textinput.Model
	descInput    textinput.Model
	spinner      components.LoadingSpinner
	keys         keyMap
}

// New creates the projects tab. covers may be nil.
func New(state *app.State, covers CoverSource) *Model {
	titleInput := textinput.New()
	titleInput.Placeholder = "Neuron culture A"
	titleInput.CharLimit = 100
	titleInput.Width = 40

	descInput := textinput.New()
	descInput.Placeholder = "Optional description"
	descInput.CharLimit = 300
	descInput.Width = 40

	t := table.New(
		table.WithColumns(columns(60)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle
	s.Cell = styles.TableCellStyle
	s.Selected = styles.TableSelectedStyle
	t.SetStyles(s)

	return &Model{
		state:      state,
		covers:     covers,
		table:      t,
		titleInput: titleInput,
		descInput:  descInput,
		spinner:    components.NewSpinner("Loading projects..."),
		keys:       defaultKeyMap(),
	}
}

func columns(width int) []table.Column {
	titleWidth := min(max(width/3, 16), 32)
	descWidth := max(width-titleWidth-16, 12)
	return []table.Column{
		{Title: "Title", Width: titleWidth},
		{Title: "Description", Width: descWidth},
		{Title: "Images", Width: 8},
	}
}

// Init initializes the projects tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick()
}

// CapturingInput reports whether the new-project form owns the keyboard.
func (m *Model) CapturingInput() bool {
	return m.creating
}

// Update handles messages for the projects tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if m.creating {
		return m.updateForm(msg)
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Open):
			if title := m.Selected(); title != "" {
				return m, func() tea.Msg { return app.OpenProjectMsg{Title: title} }
			}

		case key.Matches(msg, m.keys.New):
			m.creating = true
			m.focusedField = fieldTitle
			m.titleInput.SetValue("")
			m.descInput.SetValue("")
			m.updateFormFocus()
			return m, textinput.Blink

		case key.Matches(msg, m.keys.Export):
			title := m.Selected()
			return m, func() tea.Msg { return app.ExportMsg{Project: title} }

		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
		}

	case app.ProjectsLoadedMsg, app.ProjectCreatedMsg, app.ServiceEventMsg:
		m.updateTableData()

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// updateForm handles the new-project form.
func (m *Model) updateForm(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.closeForm()
			return m, nil

		case "tab", "down":
			m.focusedField = (m.focusedField + 1) % fieldCount
			m.updateFormFocus()
			return m, textinput.Blink

		case "shift+tab", "up":
			m.focusedField = (m.focusedField - 1 + fieldCount) % fieldCount
			m.updateFormFocus()
			return m, textinput.Blink

		case "enter":
			switch m.focusedField {
			case fieldCancel:
				m.closeForm()
				return m, nil
			case fieldSubmit, fieldDescription:
				title := strings.TrimSpace(m.titleInput.Value())
				desc := strings.TrimSpace(m.descInput.Value())
				m.closeForm()
				return m, func() tea.Msg {
					return app.CreateProjectMsg{Title: title, Description: desc}
				}
			default:
				m.focusedField++
				m.updateFormFocus()
				return m, textinput.Blink
			}
		}
	}

	var cmd tea.Cmd
	switch m.focusedField {
	case fieldTitle:
		m.titleInput, cmd = m.titleInput.Update(msg)
	case fieldDescription:
		m.descInput, cmd = m.descInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) closeForm() {
	m.creating = false
	m.titleInput.Blur()
	m.descInput.Blur()
}

func (m *Model) updateFormFocus() {
	m.titleInput.Blur()
	m.descInput.Blur()

	switch m.focusedField {
	case fieldTitle:
		m.titleInput.Focus()
	case fieldDescription:
		m.descInput.Focus()
	}
}

// updateTableData copies the project list into the table.
func (m *Model) updateTableData() {
	projects := m.state.GetProjects()
	rows := make([]table.Row, 0, len(projects))
	for _, p := range projects {
		images := "-"
		if p.HasCover() {
			images = "yes"
		}
		rows = append(rows, table.Row{p.Title, p.Description, images})
	}
	m.table.SetRows(rows)
}

// Selected returns the title of the highlighted project.
func (m *Model) Selected() string {
	if row := m.table.SelectedRow(); len(row) > 0 {
		return row[0]
	}
	return ""
}

// SetSize sets the available size for the projects tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(height-8, 3))
	m.table.SetColumns(columns(m.tableWidth()))
}

// tableWidth leaves room for the cover preview on wide terminals.
func (m *Model) tableWidth() int {
	if m.width >= 100 {
		return m.width - previewCols - 12
	}
	return max(m.width-8, 40)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.creating {
		return []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			m.keys.Escape,
		}
	}
	return []key.Binding{m.keys.Open, m.keys.New, m.keys.Export}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Open, m.keys.New},
		{m.keys.Export},
	}
}
