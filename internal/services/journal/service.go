// Package journal summarizes the local request journal for display.
package journal

import (
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// RecentWindow is the window endpoint statistics are computed over.
const RecentWindow = 24 * time.Hour

// Store is the journal database.
type Store interface {
	GetRecentAPICalls(limit int) ([]models.APICall, error)
	GetEndpointStats(window time.Duration) ([]models.EndpointStats, error)
	GetJournalStats() (*models.JournalStats, error)
	PruneOlderThan(age time.Duration) (int64, error)
	Vacuum() error
}

// Summary is a cached snapshot of journal statistics.
type Summary struct {
	Totals    models.JournalStats
	Endpoints []models.EndpointStats
	Recent    []models.APICall
	UpdatedAt time.Time
}

// SlowestEndpoint returns the endpoint with the highest average latency.
func (s *Summary) SlowestEndpoint() (models.EndpointStats, bool) {
	var best models.EndpointStats
	found := false
	for _, e := range s.Endpoints {
		if !found || e.AvgDurationMs > best.AvgDurationMs {
			best = e
			found = true
		}
	}
	return best, found
}

// Service caches journal statistics and prunes old rows.
type Service struct {
	mu        sync.RWMutex
	store     Store
	retention time.Duration
	recent    int
	summary   *Summary
}

// New creates a journal service. A zero retention keeps every row.
func New(store Store, retention time.Duration) *Service {
	return &Service{
		store:     store,
		retention: retention,
		recent:    20,
	}
}

// Refresh recomputes the summary.
func (s *Service) Refresh() (*Summary, error) {
	totals, err := s.store.GetJournalStats()
	if err != nil {
		return nil, fmt.Errorf("failed to load journal totals: %w", err)
	}

	endpoints, err := s.store.GetEndpointStats(RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoint stats: %w", err)
	}

	recent, err := s.store.GetRecentAPICalls(s.recent)
	if err != nil {
		logger.Error("failed to load recent calls", "error", err)
	}

	summary := &Summary{
		Totals:    *totals,
		Endpoints: endpoints,
		Recent:    recent,
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()

	return summary, nil
}

// Cached returns the last computed summary, nil before the first Refresh.
func (s *Service) Cached() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Prune removes rows older than the retention period.
func (s *Service) Prune() (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	n, err := s.store.PruneOlderThan(s.retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("pruned request journal", "rows", n, "retention", s.retention)
		if err := s.store.Vacuum(); err != nil {
			logger.Warn("failed to vacuum request journal", "error", err)
		}
	}
	return n, nil
}
