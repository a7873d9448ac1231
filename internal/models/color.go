// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"math"
	"strconv"
)

// RGB is a point colour on the red→blue timeline gradient.
type RGB struct {
	R, G, B uint8
}

// Red is the colour of the earliest observation.
var Red = RGB{R: 255}

// String renders the colour in CSS notation.
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// GradientColor maps a ratio in [0,1] onto the red→blue gradient.
func GradientColor(ratio float64) RGB {
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	blue := uint8(math.Round(255 * ratio))
	return RGB{R: 255 - blue, B: blue}
}

// LegendColor is the colour drawn at position p (0-255) of the legend bar.
func LegendColor(p int) RGB {
	p = min(max(p, 0), 255)
	return RGB{R: uint8(255 - p), B: uint8(p)}
}

// DateGradient colours images by elapsed time. dates must be sorted ascending;
// the first maps to pure red, the last to pure blue, and intermediate dates
// interpolate linearly on elapsed time rather than index.
func DateGradient(dates []string) ([]RGB, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	times := make([]float64, len(dates))
	for i, d := range dates {
		t, err := ParseImageDate(d)
		if err != nil {
			return nil, err
		}
		times[i] = float64(t.UnixMilli())
	}

	colors := make([]RGB, len(dates))
	colors[0] = Red
	span := times[len(times)-1] - times[0]
	for i := 1; i < len(times); i++ {
		if span == 0 {
			colors[i] = Red
			continue
		}
		colors[i] = GradientColor((times[i] - times[0]) / span)
	}
	return colors, nil
}

// ValueGradient colours cells by their position within the value range.
// A degenerate range colours everything red.
func ValueGradient(values []float64) []RGB {
	if len(values) == 0 {
		return nil
	}
	lo, hi := MinMax(values)
	colors := make([]RGB, len(values))
	for i, v := range values {
		if hi == lo {
			colors[i] = Red
			continue
		}
		colors[i] = GradientColor((v - lo) / (hi - lo))
	}
	return colors
}

// MinMax returns the smallest and largest value. Both are zero for an empty slice.
func MinMax(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// NearestBlue returns the index whose blue channel is closest to position p.
// Ties resolve to the lowest index. Returns -1 for an empty palette.
func NearestBlue(colors []RGB, p int) int {
	best := -1
	bestDiff := math.MaxInt
	for i, c := range colors {
		diff := int(c.B) - p
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// LegendValue formats a colour-metric bound for the legend, rounded to five decimals.
func LegendValue(v float64) string {
	r := math.Round(v*1e5) / 1e5
	// Collapse -0.
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
