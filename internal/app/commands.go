package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/celltrack-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	// operationTimeout bounds a single user-initiated backend operation,
	// which may span several requests.
	operationTimeout = 2 * time.Minute
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

func operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), operationTimeout)
}

// loadInitialData returns a command that loads the project list and stats.
func loadInitialData(mgr *services.Manager) tea.Cmd {
	return loadProjectsCmd(mgr)
}

// loadProjectsCmd refetches projects and their covers.
func loadProjectsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()

		projects, err := mgr.RefreshProjects(ctx)
		return ProjectsLoadedMsg{
			Projects: projects,
			Stats:    mgr.GetStats(),
			Error:    err,
		}
	}
}

// loadStatsCmd returns a command that loads statistics.
func loadStatsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return StatsLoadedMsg{Stats: mgr.GetStats()}
	}
}

func createProjectCmd(mgr *services.Manager, title, description string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		return ProjectCreatedMsg{Title: title, Error: mgr.CreateProject(ctx, title, description)}
	}
}

func openProjectCmd(mgr *services.Manager, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		snap, err := mgr.OpenProject(ctx, title)
		return PlotLoadedMsg{Snapshot: snap, Error: err}
	}
}

func setGranularityCmd(mgr *services.Manager, msg SetGranularityMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		snap, err := mgr.Binding().SetGranularity(ctx, msg.Mode, msg.Condition, msg.Date)
		return PlotLoadedMsg{Snapshot: snap, Error: err}
	}
}

func setAxisMetricCmd(mgr *services.Manager, msg SetAxisMetricMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		snap, err := mgr.Binding().SetAxisMetric(ctx, msg.Axis, msg.Metric)
		return PlotLoadedMsg{Snapshot: snap, Error: err}
	}
}

func scrubCmd(mgr *services.Manager, pos int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		snap, err := mgr.Binding().Scrub(ctx, pos)
		return PlotLoadedMsg{Snapshot: snap, Error: err}
	}
}

func exportCmd(mgr *services.Manager, project string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		path, err := mgr.Export(ctx, project)
		return ExportResultMsg{Path: path, Error: err}
	}
}

func savePlotCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		path, err := mgr.SavePlot()
		return PlotSavedMsg{Path: path, Error: err}
	}
}

func uploadCmd(mgr *services.Manager, msg UploadMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := operationContext()
		defer cancel()
		err := mgr.UploadPair(ctx, msg.Project, msg.ImagePath, msg.Segmentation, msg.Captured)
		return UploadResultMsg{Project: msg.Project, Image: msg.ImagePath, Error: err}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}
