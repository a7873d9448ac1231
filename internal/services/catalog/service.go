// Package catalog keeps the project list and cover images fresh.
package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// Backend is the part of the REST client the catalog uses.
type Backend interface {
	ListProjects(ctx context.Context) (models.ProjectList, error)
	CoverImage(ctx context.Context, project string) ([]byte, error)
	CreateProject(ctx context.Context, title, description string) error
}

// Event represents a catalog service event.
type Event struct {
	Error    error
	Projects models.ProjectList
	Project  string
	Type     EventType
}

// EventType defines the type of catalog event.
type EventType int

const (
	// EventProjectsUpdated carries a freshly fetched project list.
	EventProjectsUpdated EventType = iota
	// EventRefreshing indicates a refresh is in progress.
	EventRefreshing
	// EventCoverLoaded indicates a project's cover image is cached.
	EventCoverLoaded
	// EventProjectCreated indicates a new project was added.
	EventProjectCreated
	// EventError indicates a refresh or cover fetch failed.
	EventError
)

// Config holds configuration for the catalog service.
type Config struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Minute,
		RequestTimeout: 30 * time.Second,
		MaxConcurrent:  4,
	}
}

// Service polls the backend for projects and caches their cover images.
type Service struct {
	backend   Backend
	projects  models.ProjectList
	covers    map[string][]byte
	lastFetch time.Time
	eventChan chan Event
	stopChan  chan struct{}
	config    Config
	mu        sync.RWMutex
	refreshMu sync.Mutex
	closeOnce sync.Once
}

// New creates the service and starts polling. A zero PollInterval disables
// polling; Refresh can still be called directly.
func New(b Backend, config Config) *Service {
	defaults := DefaultConfig()
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}

	s := &Service{
		backend:   b,
		covers:    make(map[string][]byte),
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		config:    config,
	}

	if config.PollInterval > 0 {
		go s.poll()
	}

	return s
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Projects returns the cached project list.
func (s *Service) Projects() models.ProjectList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(models.ProjectList, len(s.projects))
	copy(out, s.projects)
	return out
}

// Cover returns the cached cover image of a project, nil if none.
func (s *Service) Cover(title string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.covers[title]
}

// Refresh fetches the project list, then every missing cover concurrently.
// Concurrent calls are serialized.
func (s *Service) Refresh(ctx context.Context) (models.ProjectList, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.sendEvent(Event{Type: EventRefreshing})

	listCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	projects, err := s.backend.ListProjects(listCtx)
	cancel()
	if err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
		return nil, err
	}

	s.mu.Lock()
	s.projects = projects
	s.lastFetch = time.Now()
	// Drop covers of projects that disappeared or lost their images.
	for title := range s.covers {
		if p, ok := projects.Find(title); !ok || !p.HasCover() {
			delete(s.covers, title)
		}
	}
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventProjectsUpdated, Projects: projects})

	if err := s.loadCovers(ctx, projects); err != nil {
		logger.Warn("failed to load some cover images", "error", err)
	}
	return projects, nil
}

// loadCovers fetches uncached covers with bounded concurrency. Individual
// failures are reported as events and do not cancel the others.
func (s *Service) loadCovers(ctx context.Context, projects models.ProjectList) error {
	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrent)

	var mu sync.Mutex
	var errs []error
	for _, p := range projects {
		if !p.HasCover() || s.Cover(p.Title) != nil {
			continue
		}
		g.Go(func() error {
			coverCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
			defer cancel()

			img, err := s.backend.CoverImage(coverCtx, p.Title)
			if err != nil {
				s.sendEvent(Event{Type: EventError, Project: p.Title, Error: err})
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			if img == nil {
				return nil
			}

			s.mu.Lock()
			s.covers[p.Title] = img
			s.mu.Unlock()
			s.sendEvent(Event{Type: EventCoverLoaded, Project: p.Title})
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Create adds a project and refreshes the list.
func (s *Service) Create(ctx context.Context, title, description string) error {
	createCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	err := s.backend.CreateProject(createCtx, title, description)
	cancel()
	if err != nil {
		s.sendEvent(Event{Type: EventError, Project: title, Error: err})
		return err
	}
	s.sendEvent(Event{Type: EventProjectCreated, Project: title})

	_, err = s.Refresh(ctx)
	return err
}

// poll runs the background polling goroutine.
func (s *Service) poll() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stopChan
		cancel()
	}()

	// Initial refresh
	if _, err := s.Refresh(ctx); err != nil {
		logger.Error("failed to refresh projects", "error", err)
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				logger.Error("failed to refresh projects", "error", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the service.
func (s *Service) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	return nil
}

// Stats summarizes the catalog.
type Stats struct {
	LastFetch    time.Time
	Projects     int
	WithImages   int
	CachedCovers int
	CoverBytes   int
}

// GetStats returns current statistics.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		LastFetch:    s.lastFetch,
		Projects:     len(s.projects),
		CachedCovers: len(s.covers),
	}
	for _, p := range s.projects {
		if p.HasCover() {
			stats.WithImages++
		}
	}
	for _, c := range s.covers {
		stats.CoverBytes += len(c)
	}
	return stats
}
