// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"slices"
)

// Granularity selects what a plotted point represents.
type Granularity int

const (
	// GranularityAverage plots one averaged point per image.
	GranularityAverage Granularity = iota
	// GranularityAllCells plots every cell of every image.
	GranularityAllCells
	// GranularitySingleImage plots every cell of one selected image.
	GranularitySingleImage
)

// String returns the string representation of a Granularity.
func (g Granularity) String() string {
	switch g {
	case GranularityAverage:
		return "average"
	case GranularityAllCells:
		return "all-cells"
	case GranularitySingleImage:
		return "single-image"
	default:
		return "unknown"
	}
}

// AxisCount returns how many axes are bound in this granularity.
func (g Granularity) AxisCount() int {
	if g == GranularitySingleImage {
		return 4
	}
	return 3
}

// HasOutliers reports whether the backend returns outlier indices for this granularity.
func (g Granularity) HasOutliers() bool {
	return g != GranularityAverage
}

// ParseGranularity parses the string form produced by String.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "average", "avg":
		return GranularityAverage, nil
	case "all-cells", "all":
		return GranularityAllCells, nil
	case "single-image", "single":
		return GranularitySingleImage, nil
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

// Condition is a backend-side metric selection heuristic.
type Condition string

const (
	ConditionMaxVariance         Condition = "Max Variance"
	ConditionMinVariance         Condition = "Min Variance"
	ConditionMaxRange            Condition = "Max Range"
	ConditionMinRange            Condition = "Min Range"
	ConditionMaxTimeCorrelation  Condition = "Max Time Correlation"
	ConditionMinTimeCorrelation  Condition = "Min Time Correlation"
	ConditionPrincipalComponents Condition = "Principal Components"
)

// DefaultCondition is used when a plot is first opened.
const DefaultCondition = ConditionMaxVariance

// Conditions lists every condition in menu order.
var Conditions = []Condition{
	ConditionMaxVariance,
	ConditionMinVariance,
	ConditionMaxRange,
	ConditionMinRange,
	ConditionMaxTimeCorrelation,
	ConditionMinTimeCorrelation,
	ConditionPrincipalComponents,
}

// IsPCA reports whether the condition requests principal-component scores.
func (c Condition) IsPCA() bool {
	return c == ConditionPrincipalComponents
}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	return slices.Contains(Conditions, c)
}

// Axis identifies a plot axis slot.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisColor
)

// String returns the axis label.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	case AxisColor:
		return "Color"
	default:
		return "?"
	}
}

// AxesFor returns the ordered axis slots bound in a granularity.
func AxesFor(g Granularity) []Axis {
	if g == GranularitySingleImage {
		return []Axis{AxisX, AxisY, AxisZ, AxisColor}
	}
	return []Axis{AxisX, AxisY, AxisZ}
}

// MetricSeries holds the values of one named metric across a set of observations.
type MetricSeries struct {
	Name        string
	Granularity Granularity
	// Average has one value per image (average granularity only).
	Average []float64
	// Cells has one inner slice per image with one value per cell. Single-image
	// series carry exactly one inner slice.
	Cells [][]float64
}

// Len returns the number of images the series spans.
func (s MetricSeries) Len() int {
	if s.Granularity == GranularityAverage {
		return len(s.Average)
	}
	return len(s.Cells)
}

// Values returns the flat cell values of a single-image series.
func (s MetricSeries) Values() []float64 {
	if len(s.Cells) == 0 {
		return nil
	}
	return s.Cells[0]
}

// Clone returns a deep copy of the series.
func (s MetricSeries) Clone() MetricSeries {
	out := MetricSeries{Name: s.Name, Granularity: s.Granularity}
	if s.Average != nil {
		out.Average = slices.Clone(s.Average)
	}
	if s.Cells != nil {
		out.Cells = make([][]float64, len(s.Cells))
		for i, c := range s.Cells {
			out.Cells[i] = slices.Clone(c)
		}
	}
	return out
}

// AxisBinding assigns a metric series to a plot axis.
type AxisBinding struct {
	Axis   Axis
	Series MetricSeries
}

// Metric returns the bound metric name.
func (b AxisBinding) Metric() string {
	return b.Series.Name
}

// OutlierSet holds flagged cell indices, one entry per image. Single-image
// mode uses a single entry.
type OutlierSet [][]int

// For returns the outlier indices of image i.
func (o OutlierSet) For(i int) []int {
	if i < 0 || i >= len(o) {
		return nil
	}
	return o[i]
}

// Clone returns a deep copy of the set.
func (o OutlierSet) Clone() OutlierSet {
	if o == nil {
		return nil
	}
	out := make(OutlierSet, len(o))
	for i, idx := range o {
		out[i] = slices.Clone(idx)
	}
	return out
}

// FocusState is the transient hover or scrub focus.
type FocusState struct {
	Active bool
	Date   string
	// Cell is -1 when the focus is on a whole image rather than a cell.
	Cell int
	// WholeImage is the raw image, or the image with the focused cell outlined.
	WholeImage []byte
	// CellImage is the cropped cell, empty for image-level focus.
	CellImage []byte
	// Value is the colour-metric value of the focused cell in single-image mode.
	Value float64
}

// PointLabel is the hover text attached to a plotted point.
type PointLabel struct {
	Date    string
	Metrics []string
	Cell    int
}

// String renders the label the way the plot tooltip shows it.
func (l PointLabel) String() string {
	if l.Cell < 0 {
		return fmt.Sprintf("%s %v", l.Date, l.Metrics)
	}
	return fmt.Sprintf("%s %v cell %d", l.Date, l.Metrics, l.Cell)
}
