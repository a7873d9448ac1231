package binding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

var demoDates = []string{"2024-01-01", "2024-01-02", "2024-01-05"}

// fakeFetcher records calls and answers from configurable functions.
type fakeFetcher struct {
	mu        sync.Mutex
	condition func(q backend.MetricQuery, cond models.Condition) (*backend.MetricsResult, error)
	specific  func(q backend.MetricQuery, metric string, others []string) (*backend.MetricsResult, error)
	// highlight, when set, runs before a highlighted image is returned.
	highlight func(date string, cell int) error

	hints      [][]string
	images     []string
	highlights []string
	crops      []string
}

func (f *fakeFetcher) ConditionMetrics(_ context.Context, q backend.MetricQuery, cond models.Condition) (*backend.MetricsResult, error) {
	return f.condition(q, cond)
}

func (f *fakeFetcher) SpecificMetric(_ context.Context, q backend.MetricQuery, metric string, others []string) (*backend.MetricsResult, error) {
	f.mu.Lock()
	f.hints = append(f.hints, others)
	f.mu.Unlock()
	return f.specific(q, metric, others)
}

func (f *fakeFetcher) SpecificImage(_ context.Context, _, date string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, date)
	return []byte("image:" + date), nil
}

func (f *fakeFetcher) HighlightedImage(_ context.Context, _, date string, cell int) ([]byte, error) {
	key := fmt.Sprintf("%s#%d", date, cell)
	f.mu.Lock()
	f.highlights = append(f.highlights, key)
	hook := f.highlight
	f.mu.Unlock()

	if hook != nil {
		if err := hook(date, cell); err != nil {
			return nil, err
		}
	}
	return []byte("whole:" + key), nil
}

func (f *fakeFetcher) SegmentedCell(_ context.Context, _, date string, cell int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s#%d", date, cell)
	f.crops = append(f.crops, key)
	return []byte("cell:" + key), nil
}

func (f *fakeFetcher) calls() (images, highlights, crops []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.images), slices.Clone(f.highlights), slices.Clone(f.crops)
}

func cellsSeries(name string, cells [][]float64) models.MetricSeries {
	return models.MetricSeries{Name: name, Granularity: models.GranularityAllCells, Cells: cells}
}

func demoAllCells() *backend.MetricsResult {
	return &backend.MetricsResult{
		Granularity: models.GranularityAllCells,
		Dates:       demoDates,
		Series: []models.MetricSeries{
			cellsSeries("Perimeter", [][]float64{{1, 2, 3}, {4, 5}, {6, 7, 8, 9}}),
			cellsSeries("Area", [][]float64{{10, 20, 30}, {40, 50}, {60, 70, 80, 90}}),
			cellsSeries("Elongation", [][]float64{{.1, .2, .3}, {.4, .5}, {.6, .7, .8, .9}}),
		},
		Outliers: models.OutlierSet{{0}, {1}, {}},
	}
}

func demoAverage() *backend.MetricsResult {
	avg := func(name string, v ...float64) models.MetricSeries {
		return models.MetricSeries{Name: name, Granularity: models.GranularityAverage, Average: v}
	}
	return &backend.MetricsResult{
		Granularity: models.GranularityAverage,
		Dates:       demoDates,
		Series:      []models.MetricSeries{avg("Perimeter", 1, 2, 3), avg("Area", 4, 5, 6), avg("Elongation", 7, 8, 9)},
	}
}

func demoSingle() *backend.MetricsResult {
	single := func(name string, v ...float64) models.MetricSeries {
		return models.MetricSeries{Name: name, Granularity: models.GranularitySingleImage, Cells: [][]float64{v}}
	}
	return &backend.MetricsResult{
		Granularity: models.GranularitySingleImage,
		Dates:       []string{"2024-01-02"},
		Series: []models.MetricSeries{
			single("Perimeter", 1, 2, 3),
			single("Area", 4, 5, 6),
			single("Elongation", 7, 8, 9),
			single("Spikiness", 0, 10, 5),
		},
		Outliers: models.OutlierSet{{1}},
	}
}

func newDemo(t *testing.T, f *fakeFetcher, opts ...Option) *Binding {
	t.Helper()
	if f.condition == nil {
		f.condition = func(q backend.MetricQuery, _ models.Condition) (*backend.MetricsResult, error) {
			switch q.Granularity {
			case models.GranularityAverage:
				return demoAverage(), nil
			case models.GranularitySingleImage:
				return demoSingle(), nil
			default:
				return demoAllCells(), nil
			}
		}
	}
	b := New(f, opts...)
	t.Cleanup(b.Close)
	b.SetProject("Demo")
	return b
}

func TestSetGranularityAllCells(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)

	snap, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, "")
	if err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	if len(snap.Bindings) != 3 {
		t.Fatalf("len(Bindings) = %d, want 3", len(snap.Bindings))
	}
	for _, bd := range snap.Bindings {
		if got := len(bd.Series.Cells); got != 3 {
			t.Errorf("axis %s has %d images, want 3", bd.Axis, got)
		}
	}
	if len(snap.Outliers) != 3 {
		t.Errorf("len(Outliers) = %d, want 3", len(snap.Outliers))
	}
	if diff := cmp.Diff([]string{"Perimeter", "Area", "Elongation"}, snap.MetricNames()); diff != "" {
		t.Errorf("metric names mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Points) != 9 {
		t.Errorf("len(Points) = %d, want 9", len(snap.Points))
	}
	if snap.DateColors[0] != models.Red || snap.DateColors[2] != (models.RGB{B: 255}) {
		t.Errorf("unexpected date colours %v", snap.DateColors)
	}
	if string(snap.Sample) != "image:2024-01-01" {
		t.Errorf("Sample = %q", snap.Sample)
	}
}

func TestHideOutliers(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	orig, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, "")
	if err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	hidden := b.ToggleHideOutliers(true)
	x, _ := hidden.VisibleBinding(models.AxisX)
	want := [][]float64{{2, 3}, {4}, {6, 7, 8, 9}}
	if diff := cmp.Diff(want, x.Series.Cells); diff != "" {
		t.Errorf("filtered X mismatch (-want +got):\n%s", diff)
	}
	if len(hidden.Points) != 7 {
		t.Errorf("len(Points) = %d, want 7", len(hidden.Points))
	}
	bx, _ := hidden.Binding(models.AxisX)
	if diff := cmp.Diff(orig.Bindings[0], bx); diff != "" {
		t.Errorf("filtering mutated the bound series (-want +got):\n%s", diff)
	}

	shown := b.ToggleHideOutliers(false)
	if diff := cmp.Diff(orig.Visible, shown.Visible); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestHideOutliersResetOnGranularity(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	ctx := context.Background()

	if _, err := b.SetGranularity(ctx, models.GranularityAllCells, models.ConditionMaxVariance, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	b.ToggleHideOutliers(true)

	snap, err := b.SetGranularity(ctx, models.GranularityAverage, models.ConditionMaxVariance, "")
	if err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	if snap.HideOutliers {
		t.Error("HideOutliers should reset on granularity change")
	}
	if snap.Outliers != nil {
		t.Errorf("average mode should carry no outliers, got %v", snap.Outliers)
	}
}

func TestSetAxisMetricKeepsOtherAxes(t *testing.T) {
	f := &fakeFetcher{}
	f.specific = func(q backend.MetricQuery, metric string, _ []string) (*backend.MetricsResult, error) {
		return &backend.MetricsResult{
			Granularity: q.Granularity,
			Dates:       demoDates,
			Series:      []models.MetricSeries{cellsSeries(metric, [][]float64{{-1, -2, -3}, {-4, -5}, {-6, -7, -8, -9}})},
			Outliers:    models.OutlierSet{{2}, {}, {3}},
		}, nil
	}
	b := newDemo(t, f)
	before, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, "")
	if err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	after, err := b.SetAxisMetric(context.Background(), models.AxisY, "Spikiness")
	if err != nil {
		t.Fatalf("SetAxisMetric() error = %v", err)
	}

	for _, axis := range []models.Axis{models.AxisX, models.AxisZ} {
		was, _ := before.Binding(axis)
		now, _ := after.Binding(axis)
		if diff := cmp.Diff(was, now); diff != "" {
			t.Errorf("axis %s changed (-want +got):\n%s", axis, diff)
		}
	}
	y, _ := after.Binding(models.AxisY)
	if y.Metric() != "Spikiness" || y.Series.Cells[0][0] != -1 {
		t.Errorf("Y binding = %+v", y)
	}
	if diff := cmp.Diff(models.OutlierSet{{2}, {}, {3}}, after.Outliers); diff != "" {
		t.Errorf("outliers not refreshed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"Perimeter", "Elongation"}}, f.hints); diff != "" {
		t.Errorf("hints mismatch (-want +got):\n%s", diff)
	}
}

func TestSetAxisMetricValidation(t *testing.T) {
	f := &fakeFetcher{}
	b := New(f)
	t.Cleanup(b.Close)

	if _, err := b.SetAxisMetric(context.Background(), models.AxisX, "Area"); !errors.Is(err, ErrNoProject) {
		t.Errorf("error = %v, want ErrNoProject", err)
	}
	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, ""); !errors.Is(err, ErrNoProject) {
		t.Errorf("error = %v, want ErrNoProject", err)
	}

	b = newDemo(t, f)
	if _, err := b.SetAxisMetric(context.Background(), models.AxisX, "Area"); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	if _, err := b.SetAxisMetric(context.Background(), models.AxisColor, "Area"); !errors.Is(err, ErrAxisOutOfRange) {
		t.Errorf("error = %v, want ErrAxisOutOfRange", err)
	}
	if _, err := b.SetGranularity(context.Background(), models.GranularitySingleImage, models.DefaultCondition, ""); err == nil {
		t.Error("single-image mode without a date should fail")
	}
	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, "Median", ""); err == nil {
		t.Error("unknown condition should fail")
	}
}

func TestFailureKeepsPreviousBindings(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	before, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, "")
	if err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	f.condition = func(backend.MetricQuery, models.Condition) (*backend.MetricsResult, error) {
		return nil, backend.ErrUnsuccessful
	}
	if _, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMinRange, ""); !errors.Is(err, backend.ErrUnsuccessful) {
		t.Fatalf("error = %v, want ErrUnsuccessful", err)
	}
	if b.Snapshot() != before {
		t.Error("failed fetch replaced the snapshot")
	}

	f.specific = func(backend.MetricQuery, string, []string) (*backend.MetricsResult, error) {
		return &backend.MetricsResult{Series: []models.MetricSeries{cellsSeries("Area", [][]float64{{1}})}}, nil
	}
	if _, err := b.SetAxisMetric(context.Background(), models.AxisX, "Area"); !errors.Is(err, backend.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed for misaligned series", err)
	}
	if b.Snapshot() != before {
		t.Error("misaligned series replaced the snapshot")
	}
}

func TestEmptyProject(t *testing.T) {
	f := &fakeFetcher{condition: func(q backend.MetricQuery, _ models.Condition) (*backend.MetricsResult, error) {
		return &backend.MetricsResult{Granularity: q.Granularity}, nil
	}}
	b := newDemo(t, f)

	snap, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, "")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
	if !snap.Empty || snap.Ready() {
		t.Errorf("snapshot should be an empty placeholder: %+v", snap)
	}
	if _, err := b.Scrub(context.Background(), 10); !errors.Is(err, ErrNoData) {
		t.Errorf("Scrub() error = %v, want ErrNoData", err)
	}
}

func TestStaleAxisResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{}
	f.specific = func(q backend.MetricQuery, metric string, _ []string) (*backend.MetricsResult, error) {
		if metric == "Slow" {
			<-release
		}
		return &backend.MetricsResult{
			Granularity: q.Granularity,
			Dates:       demoDates,
			Series:      []models.MetricSeries{{Name: metric, Granularity: q.Granularity, Average: []float64{0, 0, 0}}},
		}, nil
	}
	b := newDemo(t, f)
	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	slowErr := make(chan error, 1)
	go func() {
		_, err := b.SetAxisMetric(context.Background(), models.AxisY, "Slow")
		slowErr <- err
	}()
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.hints) == 1
	})

	if _, err := b.SetAxisMetric(context.Background(), models.AxisY, "Fast"); err != nil {
		t.Fatalf("SetAxisMetric() error = %v", err)
	}
	close(release)

	if err := <-slowErr; !errors.Is(err, ErrStale) {
		t.Errorf("slow result error = %v, want ErrStale", err)
	}
	y, _ := b.Snapshot().Binding(models.AxisY)
	if y.Metric() != "Fast" {
		t.Errorf("Y metric = %q, want Fast", y.Metric())
	}
}

func TestAxisRequestReissuedWhenOtherAxisChanges(t *testing.T) {
	release := make(chan struct{})
	var slowCalls int
	f := &fakeFetcher{}
	f.specific = func(q backend.MetricQuery, metric string, others []string) (*backend.MetricsResult, error) {
		if metric == "Slow" {
			f.mu.Lock()
			slowCalls++
			first := slowCalls == 1
			f.mu.Unlock()
			if first {
				<-release
			}
		}
		outliers := models.OutlierSet{{0}, {0}, {0}}
		if slices.Contains(others, "Fast") {
			outliers = models.OutlierSet{{2}, {}, {}}
		}
		return &backend.MetricsResult{
			Granularity: q.Granularity,
			Dates:       demoDates,
			Series:      []models.MetricSeries{cellsSeries(metric, [][]float64{{1, 1, 1}, {1, 1}, {1, 1, 1, 1}})},
			Outliers:    outliers,
		}, nil
	}
	b := newDemo(t, f)
	ctx := context.Background()
	if _, err := b.SetGranularity(ctx, models.GranularityAllCells, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	slowErr := make(chan error, 1)
	go func() {
		_, err := b.SetAxisMetric(ctx, models.AxisY, "Slow")
		slowErr <- err
	}()
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.hints) == 1
	})

	if _, err := b.SetAxisMetric(ctx, models.AxisX, "Fast"); err != nil {
		t.Fatalf("SetAxisMetric(X) error = %v", err)
	}
	close(release)
	if err := <-slowErr; err != nil {
		t.Fatalf("SetAxisMetric(Y) error = %v", err)
	}

	f.mu.Lock()
	lastHints := f.hints[len(f.hints)-1]
	f.mu.Unlock()
	if diff := cmp.Diff([]string{"Fast", "Elongation"}, lastHints); diff != "" {
		t.Errorf("re-issued hints mismatch (-want +got):\n%s", diff)
	}

	snap := b.Snapshot()
	if diff := cmp.Diff(models.OutlierSet{{2}, {}, {}}, snap.Outliers); diff != "" {
		t.Errorf("outliers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Fast", "Slow", "Elongation"}, snap.MetricNames()); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestBulkReplacementInvalidatesAxisRequest(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{}
	f.specific = func(q backend.MetricQuery, metric string, _ []string) (*backend.MetricsResult, error) {
		<-release
		return &backend.MetricsResult{
			Granularity: q.Granularity,
			Dates:       demoDates,
			Series:      []models.MetricSeries{{Name: metric, Granularity: q.Granularity, Average: []float64{0, 0, 0}}},
		}, nil
	}
	b := newDemo(t, f)
	ctx := context.Background()
	if _, err := b.SetGranularity(ctx, models.GranularityAverage, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	axisErr := make(chan error, 1)
	go func() {
		_, err := b.SetAxisMetric(ctx, models.AxisX, "Area")
		axisErr <- err
	}()
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.hints) == 1
	})

	if _, err := b.SetGranularity(ctx, models.GranularityAllCells, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	close(release)

	if err := <-axisErr; !errors.Is(err, ErrStale) {
		t.Errorf("axis result error = %v, want ErrStale", err)
	}
	if got := b.Snapshot().Granularity; got != models.GranularityAllCells {
		t.Errorf("Granularity = %v", got)
	}
}

func TestHoverDebounce(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f, WithHoverDelay(100*time.Millisecond))
	if _, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	b.Hover("2024-01-02", 1)
	time.Sleep(50 * time.Millisecond)
	b.Hover("2024-01-02", 0)
	time.Sleep(300 * time.Millisecond)

	_, highlights, crops := f.calls()
	want := []string{"2024-01-02#0"}
	if diff := cmp.Diff(want, highlights); diff != "" {
		t.Errorf("highlight fetches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, crops); diff != "" {
		t.Errorf("crop fetches mismatch (-want +got):\n%s", diff)
	}

	focus := b.Snapshot().Focus
	if !focus.Active || focus.Cell != 0 || string(focus.CellImage) != "cell:2024-01-02#0" {
		t.Errorf("unexpected focus %+v", focus)
	}
}

func TestHoverSameTargetFetchesOnce(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f, WithHoverDelay(10*time.Millisecond))
	if _, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	b.Hover("2024-01-05", 3)
	time.Sleep(50 * time.Millisecond)
	b.Leave()
	if b.Snapshot().Focus.Active {
		t.Error("Leave() should hide focus")
	}
	b.Hover("2024-01-05", 3)
	time.Sleep(50 * time.Millisecond)

	_, highlights, _ := f.calls()
	if len(highlights) != 1 {
		t.Errorf("highlight fetches = %v, want exactly one", highlights)
	}
	if !b.Snapshot().Focus.Active {
		t.Error("hover should reactivate focus")
	}
}

func TestHoverLateFetchForOldTargetDiscarded(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{}
	f.highlight = func(_ string, cell int) error {
		if cell == 1 {
			<-release
			return nil
		}
		return errors.New("backend down")
	}
	b := newDemo(t, f, WithHoverDelay(10*time.Millisecond))
	if _, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	b.Hover("2024-01-02", 1)
	waitFor(t, func() bool {
		_, highlights, _ := f.calls()
		return len(highlights) == 1
	})
	b.Hover("2024-01-02", 0)
	waitFor(t, func() bool {
		_, highlights, _ := f.calls()
		return len(highlights) == 2
	})
	time.Sleep(20 * time.Millisecond)
	close(release)
	time.Sleep(50 * time.Millisecond)

	focus := b.Snapshot().Focus
	if focus.Cell != 0 {
		t.Fatalf("focus cell = %d, want 0", focus.Cell)
	}
	if focus.WholeImage != nil || focus.CellImage != nil {
		t.Errorf("focus on cell 0 shows images %q / %q", focus.WholeImage, focus.CellImage)
	}
}

func TestLeaveKeepsPendingFetch(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f, WithHoverDelay(20*time.Millisecond))
	if _, err := b.SetGranularity(context.Background(), models.GranularityAllCells, models.ConditionMaxVariance, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	b.Hover("2024-01-05", 2)
	b.Leave()
	waitFor(t, func() bool {
		return b.Snapshot().Focus.CellImage != nil
	})

	focus := b.Snapshot().Focus
	if focus.Active {
		t.Error("focus should stay hidden after Leave")
	}
	if string(focus.CellImage) != "cell:2024-01-05#2" {
		t.Errorf("CellImage = %q", focus.CellImage)
	}
}

func TestSnapshotVersionIncreases(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f, WithHoverDelay(time.Hour))
	ctx := context.Background()

	var versions []uint64
	record := func() { versions = append(versions, b.Snapshot().Version) }

	record()
	if _, err := b.SetGranularity(ctx, models.GranularityAllCells, models.ConditionMaxVariance, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	record()
	b.ToggleHideOutliers(true)
	record()
	b.Hover("2024-01-01", 0)
	record()
	b.Leave()
	record()

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("versions not increasing: %v", versions)
		}
	}
}

func TestScrubByDate(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	tests := []struct {
		pos  int
		want string
	}{
		{0, "2024-01-01"},
		{70, "2024-01-02"},
		{200, "2024-01-05"},
		{999, "2024-01-05"},
	}

	for _, tt := range tests {
		snap, err := b.Scrub(context.Background(), tt.pos)
		if err != nil {
			t.Fatalf("Scrub(%d) error = %v", tt.pos, err)
		}
		if snap.Focus.Date != tt.want || snap.Focus.Cell != -1 {
			t.Errorf("Scrub(%d) focus = %+v, want date %s", tt.pos, snap.Focus, tt.want)
		}
		if string(snap.Focus.WholeImage) != "image:"+tt.want {
			t.Errorf("Scrub(%d) image = %q", tt.pos, snap.Focus.WholeImage)
		}
	}
}

func TestScrubSingleImage(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	snap, err := b.SetGranularity(context.Background(), models.GranularitySingleImage, models.DefaultCondition, "2024-01-02")
	if err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	if len(snap.Bindings) != 4 {
		t.Fatalf("len(Bindings) = %d, want 4", len(snap.Bindings))
	}
	if snap.ColorMin != 0 || snap.ColorMax != 10 {
		t.Errorf("colour range = %v..%v", snap.ColorMin, snap.ColorMax)
	}

	snap, err = b.Scrub(context.Background(), 120)
	if err != nil {
		t.Fatalf("Scrub() error = %v", err)
	}
	if snap.Focus.Cell != 2 || snap.Focus.Value != 5 {
		t.Errorf("focus = %+v, want cell 2 value 5", snap.Focus)
	}
	if string(snap.Focus.WholeImage) != "whole:2024-01-02#2" || string(snap.Focus.CellImage) != "cell:2024-01-02#2" {
		t.Errorf("focus images = %q, %q", snap.Focus.WholeImage, snap.Focus.CellImage)
	}

	// Hiding cell 1 rescales the gradient over the remaining cells but keeps
	// backend cell indices.
	b.ToggleHideOutliers(true)
	snap, err = b.Scrub(context.Background(), 250)
	if err != nil {
		t.Fatalf("Scrub() error = %v", err)
	}
	if snap.Focus.Cell != 2 {
		t.Errorf("focus cell = %d, want 2", snap.Focus.Cell)
	}
	if got := snap.Label(1); got.Cell != 2 || got.Date != "2024-01-02" {
		t.Errorf("Label(1) = %+v", got)
	}
}

func TestSetProjectDiscardsState(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	snap := b.SetProject("Other")
	if snap.Ready() || len(snap.Bindings) != 0 || snap.Project != "Other" {
		t.Errorf("SetProject() left state behind: %+v", snap)
	}
}

func TestEvents(t *testing.T) {
	f := &fakeFetcher{}
	b := newDemo(t, f)
	drain(b)

	if _, err := b.SetGranularity(context.Background(), models.GranularityAverage, models.DefaultCondition, ""); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}

	select {
	case ev := <-b.Events():
		if ev.Type != EventBindingsReplaced || ev.Snapshot == nil || !ev.Snapshot.Ready() {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func drain(b *Binding) {
	for {
		select {
		case <-b.Events():
		default:
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
