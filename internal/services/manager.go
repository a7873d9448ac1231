// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/config"
	"github.com/j-veylop/celltrack-tui/internal/db"
	"github.com/j-veylop/celltrack-tui/internal/export"
	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/services/catalog"
	"github.com/j-veylop/celltrack-tui/internal/services/inbox"
	"github.com/j-veylop/celltrack-tui/internal/services/journal"
)

type (
	// ProjectsChangedEvent is emitted when the project list is refetched.
	ProjectsChangedEvent struct {
		Projects models.ProjectList
	}

	// CoverLoadedEvent is emitted when a project's cover image is cached.
	CoverLoadedEvent struct {
		Project string
	}

	// BindingChangedEvent is emitted after every applied plot state change.
	BindingChangedEvent struct {
		Type     binding.EventType
		Snapshot *binding.Snapshot
		Axis     models.Axis
	}

	// UploadEvent is emitted when an inbox pair has been processed.
	UploadEvent struct {
		Project string
		Image   string
		Error   error
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// StatsEvent is emitted when global statistics change.
	StatsEvent struct {
		Catalog catalog.Stats
		Journal *journal.Summary
		Inbox   string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (ProjectsChangedEvent) isServiceEvent() {}
func (CoverLoadedEvent) isServiceEvent()     {}
func (BindingChangedEvent) isServiceEvent()  {}
func (UploadEvent) isServiceEvent()          {}
func (ErrorEvent) isServiceEvent()           {}
func (StatsEvent) isServiceEvent()           {}

// Notifier shows a desktop notification.
type Notifier func(title, body string) error

func desktopNotify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	client      *backend.Client
	database    *db.DB
	catalog     *catalog.Service
	journal     *journal.Service
	inbox       *inbox.Service
	binding     *binding.Binding
	notify      Notifier
	eventChan   chan ServiceEvent
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
}

// OpenBackend opens the request journal and a REST client that records every
// call into it. The caller closes the database.
func OpenBackend(cfg *config.Config) (*backend.Client, *db.DB, error) {
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client, err := backend.New(cfg.BackendURL, cfg.RequestTimeout, backend.WithRecorder(database))
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	logger.Debug("backend client ready", "url", client.BaseURL(), "journal", database.Path())
	return client, database, nil
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		notify:    desktopNotify,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
	}

	var err error
	m.client, m.database, err = OpenBackend(cfg)
	if err != nil {
		return nil, err
	}

	m.journal = journal.New(m.database, cfg.JournalRetention)
	if _, err := m.journal.Prune(); err != nil {
		logger.Warn("failed to prune request journal", "error", err)
	}

	catalogConfig := catalog.DefaultConfig()
	catalogConfig.PollInterval = cfg.RefreshInterval
	if cfg.RequestTimeout > 0 {
		catalogConfig.RequestTimeout = cfg.RequestTimeout
	}
	m.catalog = catalog.New(m.client, catalogConfig)

	hoverDelay := cfg.HoverDebounce
	if hoverDelay <= 0 {
		hoverDelay = binding.DefaultHoverDelay
	}
	m.binding = binding.New(m.client, binding.WithHoverDelay(hoverDelay))

	if cfg.InboxDir != "" {
		m.inbox, err = inbox.New(cfg.InboxDir, m.client, inbox.WithTimeout(cfg.RequestTimeout*4))
		if err != nil {
			// The dashboard still works without the inbox.
			logger.Error("failed to start upload inbox", "dir", cfg.InboxDir, "error", err)
		}
	}

	go m.routeEvents()

	return m, nil
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	var inboxEvents <-chan inbox.Event
	if m.inbox != nil {
		inboxEvents = m.inbox.Events()
	}
	bindingEvents := m.binding.Events()

	for {
		select {
		case event := <-m.catalog.Events():
			m.handleCatalogEvent(event)

		case event, ok := <-bindingEvents:
			if !ok {
				bindingEvents = nil
				continue
			}
			m.handleBindingEvent(event)

		case event := <-inboxEvents:
			m.handleInboxEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleCatalogEvent(event catalog.Event) {
	switch event.Type {
	case catalog.EventProjectsUpdated:
		m.broadcast(ProjectsChangedEvent{Projects: event.Projects})
	case catalog.EventCoverLoaded:
		m.broadcast(CoverLoadedEvent{Project: event.Project})
	case catalog.EventError:
		m.broadcast(ErrorEvent{Service: "catalog", Error: event.Error})
	}
}

func (m *Manager) handleBindingEvent(event binding.Event) {
	if event.Type == binding.EventError {
		m.broadcast(ErrorEvent{Service: "plot", Error: event.Error})
		return
	}
	m.broadcast(BindingChangedEvent{Type: event.Type, Snapshot: event.Snapshot, Axis: event.Axis})
}

func (m *Manager) handleInboxEvent(event inbox.Event) {
	switch event.Type {
	case inbox.EventUploaded:
		m.broadcast(UploadEvent{Project: event.Project, Image: event.Image})
		m.notifyf("Upload complete", "%s added to %s", event.Image, event.Project)
		go func() {
			if _, err := m.catalog.Refresh(context.Background()); err != nil {
				logger.Warn("failed to refresh projects after upload", "error", err)
			}
		}()
	case inbox.EventUploadFailed:
		m.broadcast(UploadEvent{Project: event.Project, Image: event.Image, Error: event.Error})
		m.notifyf("Upload failed", "%s: %v", event.Image, event.Error)
	case inbox.EventError:
		m.broadcast(ErrorEvent{Service: "inbox", Error: event.Error})
	}
}

// notifyf shows a desktop notification when enabled.
func (m *Manager) notifyf(title, format string, args ...any) {
	if !m.cfg.NotifyEnabled || m.notify == nil {
		return
	}
	if err := m.notify(title, fmt.Sprintf(format, args...)); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	// Send to subscribers
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
func (m *Manager) Subscribe() chan ServiceEvent {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch
}

// RefreshProjects refetches the project list and missing covers.
func (m *Manager) RefreshProjects(ctx context.Context) (models.ProjectList, error) {
	return m.catalog.Refresh(ctx)
}

// CreateProject adds a project on the backend.
func (m *Manager) CreateProject(ctx context.Context, title, description string) error {
	return m.catalog.Create(ctx, title, description)
}

// OpenProject selects a project and loads its default plot: image averages
// under the default condition.
func (m *Manager) OpenProject(ctx context.Context, title string) (*binding.Snapshot, error) {
	m.binding.SetProject(title)
	return m.binding.SetGranularity(ctx, models.GranularityAverage, models.DefaultCondition, "")
}

// Export saves the project's statistics workbook into the export directory.
func (m *Manager) Export(ctx context.Context, project string) (string, error) {
	rows, err := m.client.ExportData(ctx, project)
	if err != nil {
		return "", err
	}
	path, err := export.SaveWorkbook(m.cfg.ExportDir, project, rows)
	if err != nil {
		return "", err
	}
	logger.Info("exported project statistics", "project", project, "path", path)
	m.notifyf("Export complete", "%s saved", filepath.Base(path))
	return path, nil
}

// SavePlot renders the current plot to a PNG in the export directory.
func (m *Manager) SavePlot() (string, error) {
	snap := m.binding.Snapshot()
	path := filepath.Join(m.cfg.ExportDir, export.PlotName(snap))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create plot file: %w", err)
	}
	if err := export.RenderScatter(f, snap, export.ScatterOptions{}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	m.notifyf("Plot saved", "%s saved", filepath.Base(path))
	return path, nil
}

// UploadPair uploads one image and its segmentation CSV from disk.
func (m *Manager) UploadPair(ctx context.Context, project, imagePath, segPath, captured string) error {
	if err := UploadFiles(ctx, m.client, project, imagePath, segPath, captured); err != nil {
		return err
	}
	if _, err := m.catalog.Refresh(ctx); err != nil {
		logger.Warn("failed to refresh projects after upload", "error", err)
	}
	return nil
}

// UploadFiles opens an image and segmentation pair and uploads it.
func UploadFiles(ctx context.Context, c *backend.Client, project, imagePath, segPath, captured string) error {
	img, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer func() { _ = img.Close() }()

	seg, err := os.Open(segPath)
	if err != nil {
		return err
	}
	defer func() { _ = seg.Close() }()

	return c.UploadImage(ctx, project, backend.ImageUpload{
		Image:        backend.File{Name: filepath.Base(imagePath), Reader: img},
		Segmentation: backend.File{Name: filepath.Base(segPath), Reader: seg},
		Captured:     captured,
	})
}

// GetStats returns aggregated statistics.
func (m *Manager) GetStats() StatsEvent {
	summary, err := m.journal.Refresh()
	if err != nil {
		logger.Error("failed to refresh journal summary", "error", err)
		summary = m.journal.Cached()
	}

	stats := StatsEvent{
		Catalog: m.catalog.GetStats(),
		Journal: summary,
	}
	if m.inbox != nil {
		stats.Inbox = m.inbox.Dir()
	}
	return stats
}

// Client returns the backend client.
func (m *Manager) Client() *backend.Client {
	return m.client
}

// Binding returns the plot binding.
func (m *Manager) Binding() *binding.Binding {
	return m.binding
}

// Catalog returns the project catalog service.
func (m *Manager) Catalog() *catalog.Service {
	return m.catalog
}

// Journal returns the request journal service.
func (m *Manager) Journal() *journal.Service {
	return m.journal
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	close(m.stopChan)

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error

	m.binding.Close()

	if err := m.catalog.Close(); err != nil {
		errs = append(errs, err)
	}

	if m.inbox != nil {
		if err := m.inbox.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
