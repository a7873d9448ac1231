// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"slices"
	"sync"
	"time"

	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// Loading resources.
const (
	ResourceInitial  = "initial"
	ResourceProjects = "projects"
	ResourcePlot     = "plot"
	ResourceExport   = "export"
	ResourceUpload   = "upload"
	ResourceStats    = "stats"
)

// State is the shared, mutex-guarded store every tab reads from.
type State struct {
	mu sync.RWMutex

	projects models.ProjectList
	stats    *services.StatsEvent

	// project is the open project, empty until one is selected.
	project string
	// dates are the open project's image labels, taken from the last
	// average-mode snapshot so the gallery survives single-image mode.
	dates    []string
	snapshot *binding.Snapshot

	loading     map[string]bool
	lastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state with the initial load pending.
func NewState() *State {
	return &State{
		loading:       map[string]bool{ResourceInitial: true},
		notifications: make([]Notification, 0),
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loading {
		s.loading[resource] = true
		return
	}
	delete(s.loading, resource)
}

// IsLoading reports whether a resource is loading.
func (s *State) IsLoading(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[resource]
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loading) > 0
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	return s.IsLoading(ResourceInitial)
}

// GetLoadingResources returns the loading resources in sorted order.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]string, 0, len(s.loading))
	for r := range s.loading {
		resources = append(resources, r)
	}
	slices.Sort(resources)
	return resources
}

// SetProjects replaces the project list.
func (s *State) SetProjects(projects models.ProjectList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = projects
	s.lastUpdated = time.Now()
}

// GetProjects returns a copy of the project list.
func (s *State) GetProjects() models.ProjectList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.projects)
}

// GetProjectCount returns the number of projects.
func (s *State) GetProjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// SetStats updates the statistics.
func (s *State) SetStats(stats services.StatsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
}

// GetStats returns the current statistics.
func (s *State) GetStats() *services.StatsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// OpenProject records the open project and forgets the previous one's plot.
func (s *State) OpenProject(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project != title {
		s.dates = nil
		s.snapshot = nil
	}
	s.project = title
}

// GetProject returns the open project title.
func (s *State) GetProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// SetSnapshot stores the latest plot snapshot. Snapshots older than the stored
// one are ignored. Average-mode snapshots of the open project also refresh the
// gallery dates.
func (s *State) SetSnapshot(snap *binding.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Project != "" && snap.Project != s.project {
		return
	}
	if s.snapshot != nil && snap.Version < s.snapshot.Version {
		return
	}
	s.snapshot = snap
	if snap.Granularity == models.GranularityAverage && snap.Loaded {
		s.dates = snap.Dates
	}
	s.lastUpdated = time.Now()
}

// GetSnapshot returns the latest plot snapshot, nil before the first load.
func (s *State) GetSnapshot() *binding.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// GetDates returns the open project's image labels.
func (s *State) GetDates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dates)
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	now := time.Now()
	id := now.Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: now,
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.lastUpdated)
}
