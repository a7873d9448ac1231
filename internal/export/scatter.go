package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// ErrNothingToPlot is returned for snapshots without points.
var ErrNothingToPlot = errors.New(binding.PlaceholderText)

// Default PNG dimensions.
const (
	DefaultWidth  = 1024
	DefaultHeight = 720
)

// ScatterOptions controls the rendered PNG.
type ScatterOptions struct {
	Width, Height int
	// Caption replaces the generated colour legend line.
	Caption string
}

// PlotName is the default file name for a rendered plot.
func PlotName(snap *binding.Snapshot) string {
	name := sanitize(snap.Project) + " " + snap.Granularity.String()
	if snap.Granularity == models.GranularitySingleImage && snap.Date != "" {
		name += " " + sanitize(snap.Date)
	}
	return name + ".png"
}

// dotStyle renders points only, each in its own gradient colour.
func dotStyle(points []binding.Point) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
			if index < 0 || index >= len(points) {
				return chart.ColorAlternateGray
			}
			c := points[index].Color
			return drawing.Color{R: c.R, G: c.G, B: c.B, A: 255}
		},
	}
}

// RenderScatter draws the X and Y bindings of snap as a PNG scatter plot.
func RenderScatter(w io.Writer, snap *binding.Snapshot, opts ScatterOptions) error {
	if snap == nil || !snap.Ready() || len(snap.Points) == 0 {
		return ErrNothingToPlot
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	xs := make([]float64, len(snap.Points))
	ys := make([]float64, len(snap.Points))
	for i, p := range snap.Points {
		xs[i] = p.Values[models.AxisX]
		ys[i] = p.Values[models.AxisY]
	}

	names := snap.MetricNames()
	ch := chart.Chart{
		Title:      title(snap),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 36}},
		XAxis:      chart.XAxis{Name: names[models.AxisX], Range: axisRange(xs)},
		YAxis:      chart.YAxis{Name: names[models.AxisY], Range: axisRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "cells",
				Style:   dotStyle(snap.Points),
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return fmt.Errorf("failed to decode chart: %w", err)
	}

	caption := opts.Caption
	if caption == "" {
		caption = legendCaption(snap)
	}
	if err := png.Encode(w, drawCaption(img, caption)); err != nil {
		return fmt.Errorf("failed to encode plot: %w", err)
	}
	return nil
}

func title(snap *binding.Snapshot) string {
	t := fmt.Sprintf("%s: %s (%s)", snap.Project, snap.Condition, snap.Granularity)
	if snap.Granularity == models.GranularitySingleImage {
		t += " " + snap.Date
	}
	if snap.HideOutliers {
		t += ", outliers hidden"
	}
	return t
}

// legendCaption describes what the dot colours and the unplotted Z axis mean.
func legendCaption(snap *binding.Snapshot) string {
	var parts []string
	if z, ok := snap.Binding(models.AxisZ); ok {
		parts = append(parts, "Z: "+z.Metric())
	}
	if snap.Granularity == models.GranularitySingleImage {
		if c, ok := snap.Binding(models.AxisColor); ok {
			parts = append(parts, fmt.Sprintf("Color: %s, red %s to blue %s",
				c.Metric(), models.LegendValue(snap.ColorMin), models.LegendValue(snap.ColorMax)))
		}
	} else if len(snap.Dates) > 0 {
		parts = append(parts, fmt.Sprintf("Color: red %s to blue %s", snap.Dates[0], snap.Dates[len(snap.Dates)-1]))
	}
	return strings.Join(parts, "   ")
}

// axisRange pads the data bounds so a single value still spans an axis.
func axisRange(values []float64) *chart.ContinuousRange {
	lo, hi := models.MinMax(values)
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = max(math.Abs(lo)*0.1, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// drawCaption writes text on a dark strip along the bottom-left of img.
func drawCaption(img image.Image, text string) image.Image {
	if img == nil || strings.TrimSpace(text) == "" {
		return img
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)

	pad := 6
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: rgba, Src: image.NewUniform(color.White), Face: face}
	tw := dr.MeasureString(text).Ceil()
	x := b.Min.X + 8
	y := b.Max.Y - 8

	bg := image.NewUniform(color.RGBA{A: 200})
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad/2)
	draw.Draw(rgba, rect, bg, image.Point{}, draw.Over)

	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
	return rgba
}
