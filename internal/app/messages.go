package app

import (
	"time"

	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// ProjectsLoadedMsg contains the refetched project list.
type ProjectsLoadedMsg struct {
	Projects models.ProjectList
	Stats    services.StatsEvent
	Error    error
}

// StatsLoadedMsg contains loaded statistics.
type StatsLoadedMsg struct {
	Stats services.StatsEvent
}

// RefreshMsg requests a refresh of data.
type RefreshMsg struct {
	Resource string // ResourceProjects or ResourceStats
}

// CreateProjectMsg requests a new project on the backend.
type CreateProjectMsg struct {
	Title       string
	Description string
}

// ProjectCreatedMsg contains the result of a project creation.
type ProjectCreatedMsg struct {
	Title string
	Error error
}

// OpenProjectMsg selects a project and loads its default plot.
type OpenProjectMsg struct {
	Title string
}

// SetGranularityMsg requests a condition-driven refetch of every axis.
type SetGranularityMsg struct {
	Mode      models.Granularity
	Condition models.Condition
	// Date selects the image in single-image mode.
	Date string
}

// SetAxisMetricMsg requests a manual metric pick for one axis.
type SetAxisMetricMsg struct {
	Axis   models.Axis
	Metric string
}

// ToggleOutliersMsg shows or hides outlier cells.
type ToggleOutliersMsg struct {
	Hide bool
}

// HoverMsg puts the pointer on a plotted point.
type HoverMsg struct {
	Date string
	// Cell is -1 for an image-average point.
	Cell int
}

// LeaveMsg moves the pointer off the plot.
type LeaveMsg struct{}

// ScrubMsg moves the legend scrubber to a position in [0, 255].
type ScrubMsg struct {
	Position int
}

// PlotLoadedMsg contains the snapshot produced by a plot operation.
type PlotLoadedMsg struct {
	Snapshot *binding.Snapshot
	Error    error
}

// ExportMsg requests the statistics workbook of a project.
type ExportMsg struct {
	Project string
}

// ExportResultMsg contains the result of an export operation.
type ExportResultMsg struct {
	Path  string
	Error error
}

// SavePlotMsg requests a PNG of the current plot.
type SavePlotMsg struct{}

// PlotSavedMsg contains the result of a plot render.
type PlotSavedMsg struct {
	Path  string
	Error error
}

// UploadMsg requests an image and segmentation upload from disk.
type UploadMsg struct {
	Project      string
	ImagePath    string
	Segmentation string
	Captured     string
}

// UploadResultMsg contains the result of an upload.
type UploadResultMsg struct {
	Project string
	Image   string
	Error   error
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// PlotChangedMsg tells tabs that the stored snapshot was replaced.
type PlotChangedMsg struct {
	Type binding.EventType
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
