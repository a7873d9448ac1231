// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/services"
	"github.com/j-veylop/celltrack-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabProjects is the ID for the project grid.
	TabProjects TabID = iota
	// TabGallery is the ID for the image gallery of the open project.
	TabGallery
	// TabPlot is the ID for the metric plot.
	TabPlot
	// TabInfo is the ID for the info tab.
	TabInfo
)

var tabNames = []string{"Projects", "Gallery", "Plot", "Info"}

// String returns the string representation of the TabID.
func (t TabID) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// InputCapturer is implemented by tabs that own the keyboard while a form is open.
type InputCapturer interface {
	CapturingInput() bool
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "projects")),
		Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "gallery")),
		Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "plot")),
		Tab4:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "info")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Tab bar styles
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	// Content styles
	Content lipgloss.Style
	Toast   lipgloss.Style

	// Common styles
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#1F5FBF", Dark: "#5F8FFF"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)

	return s
}

// Model is the main application model.
type Model struct {
	activeTab TabID
	tabs      []Tab

	state    *State
	services *services.Manager
	keymap   KeyMap
	styles   Styles

	spinner spinner.Model

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabProjects,
		tabs:      make([]Tab, len(tabNames)),
		state:     NewState(),
		services:  mgr,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Loading projects...")

	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, loadInitialData(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		if cmd, handled := m.handleKeyMsg(msg); handled {
			return m, cmd
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	switch msg := msg.(type) {
	case TickMsg:
		return m.handleTick()
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		return []tea.Cmd{waitForServiceEventCmd(m.eventChannel)}
	case ServiceEventMsg:
		return m.handleServiceEventMsg(msg)
	case ProjectsLoadedMsg:
		return m.handleProjectsLoaded(msg)
	case StatsLoadedMsg:
		m.state.SetLoading(ResourceStats, false)
		m.state.SetStats(msg.Stats)
	case RefreshMsg:
		return m.handleRefresh(msg)
	case CreateProjectMsg:
		return m.handleCreateProject(msg)
	case ProjectCreatedMsg:
		return m.handleProjectCreated(msg)
	case OpenProjectMsg:
		return m.handleOpenProject(msg)
	case SetGranularityMsg:
		return m.handleSetGranularity(msg)
	case SetAxisMetricMsg:
		return m.runPlot(func(mgr *services.Manager) tea.Cmd { return setAxisMetricCmd(mgr, msg) })
	case ScrubMsg:
		if m.services != nil {
			return []tea.Cmd{scrubCmd(m.services, msg.Position)}
		}
	case ToggleOutliersMsg:
		if m.services != nil {
			m.state.SetSnapshot(m.services.Binding().ToggleHideOutliers(msg.Hide))
		}
	case HoverMsg:
		if m.services != nil {
			m.services.Binding().Hover(msg.Date, msg.Cell)
		}
	case LeaveMsg:
		if m.services != nil {
			m.services.Binding().Leave()
		}
	case PlotLoadedMsg:
		return m.handlePlotLoaded(msg)
	case ExportMsg:
		return m.handleExport(msg)
	case ExportResultMsg:
		return m.handleExportResult(msg)
	case SavePlotMsg:
		if m.services != nil {
			return []tea.Cmd{savePlotCmd(m.services)}
		}
	case PlotSavedMsg:
		if msg.Error != nil {
			return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Failed to save plot: %v", msg.Error))}
		}
		return []tea.Cmd{notifySuccessCmd("Saved " + filepath.Base(msg.Path))}
	case UploadMsg:
		return m.handleUpload(msg)
	case UploadResultMsg:
		return m.handleUploadResult(msg)
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			return []tea.Cmd{clearNotificationCmd(id, msg.Duration)}
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case StartLoadingMsg:
		m.startLoading(msg.Resource)
	case StopLoadingMsg:
		m.stopLoading(msg.Resource)
	case ErrorMsg:
		return []tea.Cmd{notifyErrorCmd(msg.Error.Error())}
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return nil
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) handleTick() []tea.Cmd {
	m.state.ClearExpiredNotifications()
	cmds := []tea.Cmd{defaultTickCmd()}
	if m.activeTab == TabInfo && m.services != nil {
		cmds = append(cmds, loadStatsCmd(m.services))
	}
	return cmds
}

func (m *Model) startLoading(resource string) {
	m.state.SetLoading(resource, true)
	m.state.SetLoadingNotification("Loading " + resource + "...")
}

func (m *Model) stopLoading(resource string) {
	m.state.SetLoading(resource, false)
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
		return
	}
	m.state.SetLoadingNotification("Loading " + strings.Join(m.state.GetLoadingResources(), ", ") + "...")
}

func (m *Model) handleServiceEventMsg(msg ServiceEventMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.eventChannel != nil {
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	}
	return cmds
}

func (m *Model) handleProjectsLoaded(msg ProjectsLoadedMsg) []tea.Cmd {
	m.stopLoading(ResourceInitial)
	m.stopLoading(ResourceProjects)
	m.state.SetStats(msg.Stats)
	if msg.Error != nil {
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Failed to load projects: %v", msg.Error))}
	}
	m.state.SetProjects(msg.Projects)
	return nil
}

func (m *Model) handleRefresh(msg RefreshMsg) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	switch msg.Resource {
	case ResourceStats:
		return []tea.Cmd{loadStatsCmd(m.services)}
	default:
		m.startLoading(ResourceProjects)
		return []tea.Cmd{loadProjectsCmd(m.services)}
	}
}

func (m *Model) handleCreateProject(msg CreateProjectMsg) []tea.Cmd {
	if strings.TrimSpace(msg.Title) == "" {
		return []tea.Cmd{notifyWarningCmd("Project title is required")}
	}
	if m.services == nil {
		return nil
	}
	m.startLoading(ResourceProjects)
	return []tea.Cmd{createProjectCmd(m.services, msg.Title, msg.Description)}
}

func (m *Model) handleProjectCreated(msg ProjectCreatedMsg) []tea.Cmd {
	m.stopLoading(ResourceProjects)
	if msg.Error != nil {
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Failed to create %s: %v", msg.Title, msg.Error))}
	}
	if m.services != nil {
		m.state.SetProjects(m.services.Catalog().Projects())
	}
	return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Created project %s", msg.Title))}
}

func (m *Model) handleOpenProject(msg OpenProjectMsg) []tea.Cmd {
	m.state.OpenProject(msg.Title)
	m.activeTab = TabPlot
	m.updateTabSizes()
	return m.runPlot(func(mgr *services.Manager) tea.Cmd { return openProjectCmd(mgr, msg.Title) })
}

func (m *Model) handleSetGranularity(msg SetGranularityMsg) []tea.Cmd {
	if m.state.GetProject() == "" {
		return []tea.Cmd{notifyWarningCmd("Open a project first")}
	}
	if msg.Mode == models.GranularitySingleImage {
		m.activeTab = TabPlot
		m.updateTabSizes()
	}
	return m.runPlot(func(mgr *services.Manager) tea.Cmd { return setGranularityCmd(mgr, msg) })
}

// runPlot starts a plot operation with the plot loading indicator.
func (m *Model) runPlot(build func(*services.Manager) tea.Cmd) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	m.startLoading(ResourcePlot)
	return []tea.Cmd{build(m.services)}
}

func (m *Model) handlePlotLoaded(msg PlotLoadedMsg) []tea.Cmd {
	m.stopLoading(ResourcePlot)
	m.state.SetSnapshot(msg.Snapshot)

	switch {
	case msg.Error == nil, errors.Is(msg.Error, binding.ErrStale):
		return nil
	case errors.Is(msg.Error, binding.ErrNoData):
		return []tea.Cmd{notifyInfoCmd(binding.PlaceholderText)}
	case errors.Is(msg.Error, binding.ErrNoProject), errors.Is(msg.Error, binding.ErrAxisOutOfRange):
		return []tea.Cmd{notifyWarningCmd(msg.Error.Error())}
	default:
		// Backend failures arrive separately as plot ErrorEvents.
		logger.Debug("plot operation failed", "error", msg.Error)
		return nil
	}
}

func (m *Model) handleExport(msg ExportMsg) []tea.Cmd {
	if msg.Project == "" {
		return []tea.Cmd{notifyWarningCmd("Select a project to export")}
	}
	if m.services == nil {
		return nil
	}
	m.startLoading(ResourceExport)
	return []tea.Cmd{exportCmd(m.services, msg.Project)}
}

func (m *Model) handleExportResult(msg ExportResultMsg) []tea.Cmd {
	m.stopLoading(ResourceExport)
	if msg.Error != nil {
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Export failed: %v", msg.Error))}
	}
	return []tea.Cmd{notifySuccessCmd("Exported " + filepath.Base(msg.Path))}
}

func (m *Model) handleUpload(msg UploadMsg) []tea.Cmd {
	if msg.ImagePath == "" || msg.Segmentation == "" {
		return []tea.Cmd{notifyWarningCmd("Both an image and a segmentation file are required")}
	}
	if m.services == nil {
		return nil
	}
	m.startLoading(ResourceUpload)
	return []tea.Cmd{uploadCmd(m.services, msg)}
}

func (m *Model) handleUploadResult(msg UploadResultMsg) []tea.Cmd {
	m.stopLoading(ResourceUpload)
	if msg.Error != nil {
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Upload of %s failed: %v", filepath.Base(msg.Image), msg.Error))}
	}
	cmds := []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Uploaded %s to %s", filepath.Base(msg.Image), msg.Project))}
	// A new image changes the average plot and the gallery.
	if m.services != nil && msg.Project == m.state.GetProject() {
		cmds = append(cmds, m.runPlot(func(mgr *services.Manager) tea.Cmd { return openProjectCmd(mgr, msg.Project) })...)
	}
	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) capturing() bool {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return false
	}
	c, ok := m.tabs[m.activeTab].(InputCapturer)
	return ok && c.CapturingInput()
}

func (m *Model) switchTab(tab TabID) {
	m.activeTab = tab
	m.updateTabSizes()
}

// handleKeyMsg handles global keys. handled is false when the key should
// reach the active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return tea.Quit, true
	}
	if m.capturing() {
		return nil, false
	}

	n := len(m.tabs)
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keymap.Tab1):
		m.switchTab(TabProjects)
		return nil, true

	case key.Matches(msg, m.keymap.Tab2):
		m.switchTab(TabGallery)
		return nil, true

	case key.Matches(msg, m.keymap.Tab3):
		m.switchTab(TabPlot)
		return nil, true

	case key.Matches(msg, m.keymap.Tab4):
		m.switchTab(TabInfo)
		return nil, true

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp && n > 0 {
			m.switchTab(TabID((int(m.activeTab) + 1) % n))
		}
		return nil, true

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp && n > 0 {
			m.switchTab(TabID((int(m.activeTab) - 1 + n) % n))
		}
		return nil, true

	case key.Matches(msg, m.keymap.Refresh):
		// The info tab refreshes its own statistics.
		if m.activeTab == TabInfo {
			return nil, false
		}
		if m.services != nil {
			m.startLoading(ResourceProjects)
			return loadProjectsCmd(m.services), true
		}
		return nil, true

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}
	}

	return nil, false
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.ProjectsChangedEvent:
		m.state.SetProjects(e.Projects)

	case services.BindingChangedEvent:
		m.state.SetSnapshot(e.Snapshot)
		return func() tea.Msg { return PlotChangedMsg{Type: e.Type} }

	case services.UploadEvent:
		if e.Error != nil {
			return notifyErrorCmd(fmt.Sprintf("Inbox upload of %s failed: %v", e.Image, e.Error))
		}
		return notifySuccessCmd(fmt.Sprintf("Inbox uploaded %s to %s", e.Image, e.Project))

	case services.ErrorEvent:
		if errors.Is(e.Error, binding.ErrStale) {
			return nil
		}
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))

	case services.StatsEvent:
		m.state.SetStats(e)
	}

	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")
		if w := lipgloss.Width(left); w < x {
			left += strings.Repeat(" ", x-w)
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	if project := m.state.GetProject(); project != "" {
		tabs = append(tabs, m.styles.Subtle.Render("  ◆ "+project))
	}
	if age := m.state.TimeSinceUpdate(); age >= time.Minute {
		tabs = append(tabs, m.styles.Subtle.Render(fmt.Sprintf("  updated %s ago", age.Truncate(time.Minute))))
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	startX := max(m.width-lipgloss.Width(toastStack)-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		if w := lipgloss.Width(mainLine); w < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-w) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"), "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-4        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  r          Refresh projects")
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tabHelp := m.tabs[m.activeTab].ShortHelp(); len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.activeTab)))
			for _, b := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", b.Help().Key, b.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.activeTab,
		m.styles.Subtle.Render("This tab is not yet implemented."),
	)
	return m.styles.Content.Render(content)
}
