package binding

import (
	"slices"

	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// PlaceholderText is shown when a project has nothing to plot.
const PlaceholderText = "Add Images to Analyze Metrics"

// Point is one plotted observation.
type Point struct {
	// Image indexes Snapshot.Dates.
	Image int
	// Cell is the backend cell index, -1 for image averages.
	Cell int
	// Values holds one coordinate per bound axis, in axis order.
	Values []float64
	Color  models.RGB
}

// Snapshot is an immutable, self-consistent view of the binding. Slices are
// shared between snapshots and must not be modified.
type Snapshot struct {
	// Version increases with every committed snapshot of a binding.
	Version uint64

	Project     string
	Granularity models.Granularity
	Condition   models.Condition
	// Date is the selected image in single-image mode.
	Date string
	// Dates are the image labels in backend order.
	Dates    []string
	Bindings []models.AxisBinding
	Outliers models.OutlierSet

	HideOutliers bool
	// Visible mirrors Bindings with outliers removed when HideOutliers is set.
	Visible []models.AxisBinding
	Points  []Point
	// DateColors has one gradient colour per image.
	DateColors []models.RGB
	// ColorMin and ColorMax bound the colour metric in single-image mode.
	ColorMin, ColorMax float64

	Focus models.FocusState
	// Sample is the raw image shown when the plot opens.
	Sample []byte
	// Empty is set when the backend returned no observations.
	Empty bool
	// Loaded is set once a fetch has populated the bindings.
	Loaded bool
}

// Ready reports whether there is data to plot.
func (s *Snapshot) Ready() bool {
	return s.Loaded && !s.Empty && len(s.Bindings) > 0
}

// Binding returns the binding of an axis.
func (s *Snapshot) Binding(axis models.Axis) (models.AxisBinding, bool) {
	for _, b := range s.Bindings {
		if b.Axis == axis {
			return b, true
		}
	}
	return models.AxisBinding{}, false
}

// VisibleBinding returns the filtered binding of an axis.
func (s *Snapshot) VisibleBinding(axis models.Axis) (models.AxisBinding, bool) {
	for _, b := range s.Visible {
		if b.Axis == axis {
			return b, true
		}
	}
	return models.AxisBinding{}, false
}

// MetricNames returns the bound metric names in axis order.
func (s *Snapshot) MetricNames() []string {
	names := make([]string, len(s.Bindings))
	for i, b := range s.Bindings {
		names[i] = b.Metric()
	}
	return names
}

// Label returns the hover label of point i.
func (s *Snapshot) Label(i int) models.PointLabel {
	if i < 0 || i >= len(s.Points) {
		return models.PointLabel{Cell: -1}
	}
	p := s.Points[i]
	label := models.PointLabel{Metrics: s.MetricNames(), Cell: p.Cell}
	if p.Image < len(s.Dates) {
		label.Date = s.Dates[p.Image]
	}
	return label
}

// clone returns a shallow copy to be modified and published as the next snapshot.
func (s *Snapshot) clone() *Snapshot {
	next := *s
	return &next
}

// derive recomputes the filtered bindings, points and colours. It must run
// after any change to bindings, outliers, granularity or the filter flag.
func (s *Snapshot) derive() {
	s.Visible = make([]models.AxisBinding, len(s.Bindings))
	for i, b := range s.Bindings {
		s.Visible[i] = models.AxisBinding{Axis: b.Axis, Series: s.filterSeries(b.Series)}
	}
	s.ColorMin, s.ColorMax = 0, 0
	s.Points = nil
	if len(s.Bindings) == 0 {
		return
	}

	switch s.Granularity {
	case models.GranularityAverage:
		s.Points = s.averagePoints()
	case models.GranularityAllCells:
		s.Points = s.cellPoints()
	case models.GranularitySingleImage:
		s.Points = s.singleImagePoints()
	}
}

// hidden reports the outlier indices removed from image i.
func (s *Snapshot) hidden(i int) []int {
	if !s.HideOutliers || s.Granularity == models.GranularityAverage {
		return nil
	}
	return s.Outliers.For(i)
}

func (s *Snapshot) filterSeries(series models.MetricSeries) models.MetricSeries {
	if !s.HideOutliers || s.Granularity == models.GranularityAverage {
		return series
	}
	out := models.MetricSeries{Name: series.Name, Granularity: series.Granularity}
	out.Cells = make([][]float64, len(series.Cells))
	for i, cells := range series.Cells {
		out.Cells[i] = removeIndices(cells, s.hidden(i))
	}
	return out
}

// removeIndices drops the listed positions and keeps the rest in order.
func removeIndices(values []float64, drop []int) []float64 {
	if len(drop) == 0 {
		return values
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if !slices.Contains(drop, i) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Snapshot) averagePoints() []Point {
	n := s.Bindings[0].Series.Len()
	points := make([]Point, 0, n)
	for i := range n {
		p := Point{Image: i, Cell: -1, Values: make([]float64, len(s.Bindings))}
		for a, b := range s.Bindings {
			p.Values[a] = b.Series.Average[i]
		}
		if i < len(s.DateColors) {
			p.Color = s.DateColors[i]
		}
		points = append(points, p)
	}
	return points
}

func (s *Snapshot) cellPoints() []Point {
	var points []Point
	first := s.Bindings[0].Series
	for i := range first.Cells {
		drop := s.hidden(i)
		for c := range first.Cells[i] {
			if slices.Contains(drop, c) {
				continue
			}
			p := Point{Image: i, Cell: c, Values: make([]float64, len(s.Bindings))}
			for a, b := range s.Bindings {
				p.Values[a] = b.Series.Cells[i][c]
			}
			if i < len(s.DateColors) {
				p.Color = s.DateColors[i]
			}
			points = append(points, p)
		}
	}
	return points
}

func (s *Snapshot) singleImagePoints() []Point {
	first := s.Bindings[0].Series.Values()
	drop := s.hidden(0)
	var points []Point
	for c := range first {
		if slices.Contains(drop, c) {
			continue
		}
		p := Point{Image: 0, Cell: c, Values: make([]float64, len(s.Bindings))}
		for a, b := range s.Bindings {
			p.Values[a] = b.Series.Values()[c]
		}
		points = append(points, p)
	}

	colorAxis := len(s.Bindings) - 1
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Values[colorAxis]
	}
	colors := models.ValueGradient(values)
	for i := range points {
		points[i].Color = colors[i]
	}
	s.ColorMin, s.ColorMax = models.MinMax(values)
	return points
}

// dateColors builds the per-image timeline gradient, falling back to index
// spacing when labels cannot be parsed.
func dateColors(dates []string) []models.RGB {
	colors, err := models.DateGradient(dates)
	if err == nil {
		return colors
	}
	logger.Warn("image dates not parseable, using index gradient", "error", err)
	colors = make([]models.RGB, len(dates))
	for i := range dates {
		if i == 0 || len(dates) == 1 {
			colors[i] = models.Red
			continue
		}
		colors[i] = models.GradientColor(float64(i) / float64(len(dates)-1))
	}
	return colors
}

// palette returns the colours the legend scrub searches.
func (s *Snapshot) palette() []models.RGB {
	if s.Granularity == models.GranularitySingleImage {
		colors := make([]models.RGB, len(s.Points))
		for i, p := range s.Points {
			colors[i] = p.Color
		}
		return colors
	}
	return s.DateColors
}
