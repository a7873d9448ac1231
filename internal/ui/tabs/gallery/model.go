// Package gallery lists the images of the open project and uploads new ones.
package gallery

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/celltrack-tui/internal/app"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

type formField int

const (
	fieldImage formField = iota
	fieldSegmentation
	fieldCaptured
	fieldSubmit
	fieldCancel
	fieldCount
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Analyze key.Binding
	Upload  key.Binding
	Escape  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous image"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next image"),
		),
		Analyze: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "analyze cells"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload image"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Model represents the gallery tab state.
type Model struct {
	state  *app.State
	cursor int
	width  int
	height int
	keys   keyMap

	uploading    bool
	focusedField formField
	inputs       [fieldSubmit]textinput.Model
}

// New creates the gallery tab.
func New(state *app.State) *Model {
	m := &Model{state: state, keys: defaultKeyMap()}

	placeholders := [fieldSubmit]string{
		"/path/to/image.png",
		"/path/to/segmentation.csv",
		"capture date, e.g. 2024-03-01 (optional)",
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 512
		in.Width = 50
		m.inputs[i] = in
	}
	return m
}

// Init initializes the gallery tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// CapturingInput reports whether the upload form owns the keyboard.
func (m *Model) CapturingInput() bool {
	return m.uploading
}

// Update handles messages for the gallery tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if m.uploading {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		m.clampCursor()
		return m, nil
	}

	dates := m.state.GetDates()
	switch {
	case key.Matches(keyMsg, m.keys.Up):
		return m, m.moveCursor(-1, dates)

	case key.Matches(keyMsg, m.keys.Down):
		return m, m.moveCursor(1, dates)

	case key.Matches(keyMsg, m.keys.Analyze):
		if m.cursor >= len(dates) {
			return m, nil
		}
		msg := app.SetGranularityMsg{
			Mode:      models.GranularitySingleImage,
			Condition: m.condition(),
			Date:      dates[m.cursor],
		}
		return m, func() tea.Msg { return msg }

	case key.Matches(keyMsg, m.keys.Upload):
		if m.state.GetProject() == "" {
			return m, func() tea.Msg {
				return app.AddNotificationMsg{Type: app.NotificationWarning, Message: "Open a project first"}
			}
		}
		m.openForm()
		return m, textinput.Blink
	}

	return m, nil
}

// moveCursor moves the selection and hovers the newly selected image so its
// preview is fetched after the hover delay.
func (m *Model) moveCursor(delta int, dates []string) tea.Cmd {
	if len(dates) == 0 {
		return nil
	}
	m.cursor = min(max(m.cursor+delta, 0), len(dates)-1)
	date := dates[m.cursor]
	return func() tea.Msg { return app.HoverMsg{Date: date, Cell: -1} }
}

func (m *Model) clampCursor() {
	n := len(m.state.GetDates())
	m.cursor = min(m.cursor, max(n-1, 0))
}

// condition keeps the current heuristic when switching to single-image mode.
func (m *Model) condition() models.Condition {
	if snap := m.state.GetSnapshot(); snap != nil && snap.Condition.Valid() {
		return snap.Condition
	}
	return models.DefaultCondition
}

// Selected returns the highlighted image date.
func (m *Model) Selected() string {
	dates := m.state.GetDates()
	if m.cursor < len(dates) {
		return dates[m.cursor]
	}
	return ""
}

func (m *Model) openForm() {
	m.uploading = true
	m.focusedField = fieldImage
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.updateFormFocus()
}

func (m *Model) closeForm() {
	m.uploading = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *Model) updateFormFocus() {
	for i := range m.inputs {
		if formField(i) == m.focusedField {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

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
			case fieldSubmit, fieldCaptured:
				upload := app.UploadMsg{
					Project:      m.state.GetProject(),
					ImagePath:    strings.TrimSpace(m.inputs[fieldImage].Value()),
					Segmentation: strings.TrimSpace(m.inputs[fieldSegmentation].Value()),
					Captured:     strings.TrimSpace(m.inputs[fieldCaptured].Value()),
				}
				m.closeForm()
				return m, func() tea.Msg { return upload }
			default:
				m.focusedField++
				m.updateFormFocus()
				return m, textinput.Blink
			}
		}
	}

	if m.focusedField >= fieldSubmit {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(msg)
	return m, cmd
}

// SetSize sets the available size for the gallery tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	for i := range m.inputs {
		m.inputs[i].Width = min(max(width-24, 20), 70)
	}
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.uploading {
		return []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "upload")),
			m.keys.Escape,
		}
	}
	return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Analyze, m.keys.Upload}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Up, m.keys.Down},
		{m.keys.Analyze, m.keys.Upload},
	}
}
