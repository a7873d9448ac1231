// Package binding keeps the plotted metric axes, their values, outliers and
// focus consistent as selections change.
package binding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// DefaultHoverDelay is the hover debounce window.
const DefaultHoverDelay = 100 * time.Millisecond

var (
	// ErrStale is returned when a newer request superseded this one.
	ErrStale = errors.New("result superseded by a newer request")
	// ErrNoProject is returned when no project is selected.
	ErrNoProject = errors.New("no project selected")
	// ErrAxisOutOfRange is returned for an axis not bound in the current granularity.
	ErrAxisOutOfRange = errors.New("axis not bound in current granularity")
	// ErrNoData is returned when the project has no observations to plot.
	ErrNoData = errors.New("no data to plot")
)

// Fetcher is the backend surface the binding needs.
type Fetcher interface {
	ConditionMetrics(ctx context.Context, q backend.MetricQuery, cond models.Condition) (*backend.MetricsResult, error)
	SpecificMetric(ctx context.Context, q backend.MetricQuery, metric string, others []string) (*backend.MetricsResult, error)
	SpecificImage(ctx context.Context, project, date string) ([]byte, error)
	HighlightedImage(ctx context.Context, project, date string, cell int) ([]byte, error)
	SegmentedCell(ctx context.Context, project, date string, cell int) ([]byte, error)
}

// EventType defines the type of binding event.
type EventType int

const (
	EventBindingsReplaced EventType = iota
	EventAxisReplaced
	EventFilterChanged
	EventFocusChanged
	EventProjectChanged
	EventError
)

// Event is published after every applied state change.
type Event struct {
	Type     EventType
	Snapshot *Snapshot
	Axis     models.Axis
	Error    error
}

// Binding owns the metric-selection state of the displayed plot.
type Binding struct {
	mu      sync.Mutex
	fetcher Fetcher
	snap    *Snapshot

	// bulkSeq numbers granularity/condition fetches; only the latest applies.
	bulkSeq uint64
	// epoch changes whenever all bindings are replaced; per-axis requests
	// issued in an older epoch are discarded.
	epoch   uint64
	axisSeq [4]uint64
	// focusSeq numbers focus image fetches from hover and scrub.
	focusSeq uint64
	hoverKey string
	// version numbers committed snapshots.
	version uint64

	hover     *Debouncer
	eventChan chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
}

// Option configures a Binding.
type Option func(*Binding)

// WithHoverDelay overrides the hover debounce window.
func WithHoverDelay(d time.Duration) Option {
	return func(b *Binding) {
		b.hover = NewDebouncer(d)
	}
}

// New creates a binding backed by f.
func New(f Fetcher, opts ...Option) *Binding {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Binding{
		fetcher:   f,
		snap:      &Snapshot{Granularity: models.GranularityAverage, Condition: models.DefaultCondition, Focus: models.FocusState{Cell: -1}},
		hover:     NewDebouncer(DefaultHoverDelay),
		eventChan: make(chan Event, 32),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Events returns the channel of applied state changes.
func (b *Binding) Events() <-chan Event {
	return b.eventChan
}

// Snapshot returns the current state.
func (b *Binding) Snapshot() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Close stops pending work and closes the event channel.
func (b *Binding) Close() {
	b.hover.Cancel()
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}

// SetProject discards all state and selects a new project. Nothing is fetched
// until SetGranularity is called.
func (b *Binding) SetProject(project string) *Snapshot {
	b.hover.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.bulkSeq++
	b.epoch++
	b.focusSeq++
	b.hoverKey = ""
	b.commit(&Snapshot{
		Project:     project,
		Granularity: models.GranularityAverage,
		Condition:   models.DefaultCondition,
		Focus:       models.FocusState{Cell: -1},
	})
	b.publish(Event{Type: EventProjectChanged})
	return b.snap
}

// SetGranularity fetches a fresh set of axes for mode, chosen by cond. date
// selects the image in single-image mode. On success every binding, the
// outliers and the focus are replaced and the outlier filter is switched off;
// on failure the previous state is kept.
func (b *Binding) SetGranularity(ctx context.Context, mode models.Granularity, cond models.Condition, date string) (*Snapshot, error) {
	if !cond.Valid() {
		return nil, fmt.Errorf("unknown condition %q", cond)
	}
	if mode == models.GranularitySingleImage && date == "" {
		return nil, fmt.Errorf("single-image mode requires an image date")
	}

	b.mu.Lock()
	project := b.snap.Project
	if project == "" {
		b.mu.Unlock()
		return nil, ErrNoProject
	}
	b.bulkSeq++
	seq := b.bulkSeq
	b.mu.Unlock()

	q := backend.MetricQuery{Project: project, Granularity: mode}
	if mode == models.GranularitySingleImage {
		q.Date = date
	}
	res, err := b.fetcher.ConditionMetrics(ctx, q, cond)
	if err == nil && !res.Empty() && len(res.Series) < mode.AxisCount() {
		err = fmt.Errorf("%w: %d series for %d axes", backend.ErrMalformed, len(res.Series), mode.AxisCount())
	}
	if err != nil {
		logger.Error("failed to fetch metrics", "project", project, "mode", mode.String(), "condition", string(cond), "error", err)
		b.fail(err)
		return nil, err
	}

	b.hover.Cancel()

	b.mu.Lock()
	if seq != b.bulkSeq || project != b.snap.Project {
		b.mu.Unlock()
		return nil, ErrStale
	}

	b.epoch++
	b.focusSeq++
	b.hoverKey = ""
	next := &Snapshot{
		Project:     project,
		Granularity: mode,
		Condition:   cond,
		Date:        q.Date,
		Focus:       models.FocusState{Cell: -1},
		Loaded:      true,
	}
	if res.Empty() {
		next.Empty = true
	} else {
		next.Dates = res.Dates
		next.Outliers = res.Outliers
		for i, axis := range models.AxesFor(mode) {
			next.Bindings = append(next.Bindings, models.AxisBinding{Axis: axis, Series: res.Series[i]})
		}
		next.DateColors = dateColors(res.Dates)
	}
	next.derive()
	b.commit(next)
	epoch := b.epoch
	b.publish(Event{Type: EventBindingsReplaced})
	b.mu.Unlock()

	if next.Empty {
		return next, ErrNoData
	}

	b.loadSample(ctx, epoch, project, next.Dates[0])
	return b.Snapshot(), nil
}

// loadSample fetches the image shown beside a freshly opened plot.
func (b *Binding) loadSample(ctx context.Context, epoch uint64, project, date string) {
	img, err := b.fetcher.SpecificImage(ctx, project, date)
	if err != nil {
		logger.Warn("failed to fetch sample image", "project", project, "date", date, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if epoch != b.epoch {
		return
	}
	next := b.snap.clone()
	next.Sample = img
	b.commit(next)
	b.publish(Event{Type: EventFocusChanged})
}

// maxHintRetries bounds how often an axis request is re-issued because the
// other bound metrics changed while it was in flight.
const maxHintRetries = 2

// SetAxisMetric replaces the metric bound to one axis. The other axes keep
// their values; outliers are refreshed outside average mode.
func (b *Binding) SetAxisMetric(ctx context.Context, axis models.Axis, metric string) (*Snapshot, error) {
	if metric == "" {
		return nil, fmt.Errorf("metric name is empty")
	}

	b.mu.Lock()
	cur := b.snap
	if cur.Project == "" {
		b.mu.Unlock()
		return nil, ErrNoProject
	}
	if !cur.Ready() {
		b.mu.Unlock()
		return nil, ErrNoData
	}
	if !slices.Contains(models.AxesFor(cur.Granularity), axis) {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAxisOutOfRange, axis)
	}
	b.axisSeq[axis]++
	seq := b.axisSeq[axis]
	epoch := b.epoch
	others := otherMetrics(cur, axis)
	b.mu.Unlock()

	q := backend.MetricQuery{Project: cur.Project, Granularity: cur.Granularity, Date: cur.Date}
	for attempt := 0; ; attempt++ {
		res, err := b.fetcher.SpecificMetric(ctx, q, metric, others)
		if err == nil {
			err = checkReplacement(cur, res, metric)
		}
		if err != nil {
			logger.Error("failed to fetch metric", "project", cur.Project, "axis", axis.String(), "metric", metric, "error", err)
			b.fail(err)
			return nil, err
		}
		series, _ := res.Find(metric)

		b.mu.Lock()
		if epoch != b.epoch || seq != b.axisSeq[axis] {
			b.mu.Unlock()
			return nil, ErrStale
		}

		// Outliers depend on every bound metric. If another axis changed
		// while this request was in flight, ask again with the current set.
		current := otherMetrics(b.snap, axis)
		hintsCurrent := slices.Equal(current, others)
		if cur.Granularity.HasOutliers() && !hintsCurrent && attempt < maxHintRetries {
			others = current
			b.mu.Unlock()
			continue
		}

		next := b.snap.clone()
		next.Bindings = slices.Clone(next.Bindings)
		for i := range next.Bindings {
			if next.Bindings[i].Axis == axis {
				next.Bindings[i] = models.AxisBinding{Axis: axis, Series: series}
			}
		}
		if next.Granularity.HasOutliers() && res.Outliers != nil && hintsCurrent {
			next.Outliers = res.Outliers
		}
		next.derive()
		b.commit(next)
		b.publish(Event{Type: EventAxisReplaced, Axis: axis})
		b.mu.Unlock()
		return next, nil
	}
}

// otherMetrics lists the metrics bound to every axis except axis, in axis order.
func otherMetrics(s *Snapshot, axis models.Axis) []string {
	var others []string
	for _, bd := range s.Bindings {
		if bd.Axis != axis {
			others = append(others, bd.Metric())
		}
	}
	return others
}

// checkReplacement verifies a fetched series fits the current observations.
func checkReplacement(cur *Snapshot, res *backend.MetricsResult, metric string) error {
	if res.Empty() {
		return ErrNoData
	}
	series, ok := res.Find(metric)
	if !ok {
		return fmt.Errorf("%w: metric %q missing", backend.ErrMalformed, metric)
	}
	ref := cur.Bindings[0].Series
	if series.Len() != ref.Len() {
		return fmt.Errorf("%w: %q covers %d images, want %d", backend.ErrMalformed, metric, series.Len(), ref.Len())
	}
	for i := range ref.Cells {
		if len(series.Cells[i]) != len(ref.Cells[i]) {
			return fmt.Errorf("%w: %q image %d has %d cells, want %d",
				backend.ErrMalformed, metric, i, len(series.Cells[i]), len(ref.Cells[i]))
		}
	}
	return nil
}

// ToggleHideOutliers switches the local outlier filter.
func (b *Binding) ToggleHideOutliers(hide bool) *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.snap.HideOutliers == hide {
		return b.snap
	}
	next := b.snap.clone()
	next.HideOutliers = hide
	next.derive()
	b.commit(next)
	b.publish(Event{Type: EventFilterChanged})
	return next
}

// commit installs next as the current snapshot with the next version number.
// Callers hold b.mu.
func (b *Binding) commit(next *Snapshot) {
	b.version++
	next.Version = b.version
	b.snap = next
}

// fail publishes an error without touching state.
func (b *Binding) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publish(Event{Type: EventError, Error: err})
}

// publish sends an event non-blocking, dropping the oldest when full.
// Callers hold b.mu.
func (b *Binding) publish(event Event) {
	if b.closed {
		return
	}
	event.Snapshot = b.snap
	select {
	case b.eventChan <- event:
	default:
		select {
		case <-b.eventChan:
		default:
		}
		select {
		case b.eventChan <- event:
		default:
		}
	}
}
