package export

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

func statsRows() []models.ExportRow {
	return []models.ExportRow{
		{"METRIC", "2024-01-01 (Mean)", "2024-01-02 (Mean)"},
		{"Area", 120.5, 130.25},
		{"Perimeter", 40.0, 41.5},
	}
}

func TestWorkbookName(t *testing.T) {
	tests := []struct {
		project string
		want    string
	}{
		{"Wound Healing", "Wound Healing Metric Tracking.xlsx"},
		{"a/b:c", "a_b_c Metric Tracking.xlsx"},
		{"  ", "Untitled Metric Tracking.xlsx"},
	}

	for _, tt := range tests {
		if got := WorkbookName(tt.project); got != tt.want {
			t.Errorf("WorkbookName(%q) = %q, want %q", tt.project, got, tt.want)
		}
	}
}

func TestSaveWorkbook(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveWorkbook(dir, "Organoids", statsRows())
	if err != nil {
		t.Fatalf("SaveWorkbook() failed: %v", err)
	}
	if want := filepath.Join(dir, "Organoids Metric Tracking.xlsx"); path != want {
		t.Errorf("SaveWorkbook() path = %q, want %q", path, want)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer f.Close()

	cells := map[string]string{
		"A1": "METRIC",
		"B1": "2024-01-01 (Mean)",
		"A2": "Area",
		"B2": "120.5",
		"C3": "41.5",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(SheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) failed: %v", cell, err)
		}
		if got != want {
			t.Errorf("GetCellValue(%s) = %q, want %q", cell, got, want)
		}
	}

	panes, err := f.GetPanes(SheetName)
	if err != nil {
		t.Fatalf("GetPanes() failed: %v", err)
	}
	if !panes.Freeze || panes.YSplit != 1 {
		t.Errorf("GetPanes() = %+v, want frozen header row", panes)
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, statsRows()); err != nil {
		t.Fatalf("WriteWorkbook() failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("GetRows() returned %d rows, want 3", len(rows))
	}
}

func TestWorkbook_Empty(t *testing.T) {
	if _, err := Workbook(nil); !errors.Is(err, ErrNoRows) {
		t.Errorf("Workbook(nil) error = %v, want ErrNoRows", err)
	}
	if _, err := SaveWorkbook(t.TempDir(), "x", nil); !errors.Is(err, ErrNoRows) {
		t.Errorf("SaveWorkbook(nil) error = %v, want ErrNoRows", err)
	}
}

func series(name string, values ...float64) models.MetricSeries {
	return models.MetricSeries{Name: name, Granularity: models.GranularityAverage, Average: values}
}

func averageSnapshot() *binding.Snapshot {
	return &binding.Snapshot{
		Project:     "Organoids",
		Granularity: models.GranularityAverage,
		Condition:   models.ConditionMaxVariance,
		Dates:       []string{"2024-01-01", "2024-01-03"},
		Bindings: []models.AxisBinding{
			{Axis: models.AxisX, Series: series("Area", 1, 2)},
			{Axis: models.AxisY, Series: series("Perimeter", 3, 4)},
			{Axis: models.AxisZ, Series: series("Spikiness", 5, 6)},
		},
		Points: []binding.Point{
			{Image: 0, Cell: -1, Values: []float64{1, 3, 5}, Color: models.Red},
			{Image: 1, Cell: -1, Values: []float64{2, 4, 6}, Color: models.RGB{B: 255}},
		},
		Loaded: true,
	}
}

func TestRenderScatter(t *testing.T) {
	var buf bytes.Buffer
	err := RenderScatter(&buf, averageSnapshot(), ScatterOptions{Width: 640, Height: 480})
	if err != nil {
		t.Fatalf("RenderScatter() failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() failed: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(640, 480) {
		t.Errorf("image size = %v, want 640x480", got)
	}
}

func TestRenderScatter_SinglePoint(t *testing.T) {
	snap := averageSnapshot()
	snap.Points = snap.Points[:1]

	var buf bytes.Buffer
	if err := RenderScatter(&buf, snap, ScatterOptions{}); err != nil {
		t.Fatalf("RenderScatter() with one point failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() failed: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(DefaultWidth, DefaultHeight) {
		t.Errorf("image size = %v, want default", got)
	}
}

func TestRenderScatter_NothingToPlot(t *testing.T) {
	tests := []struct {
		name string
		snap *binding.Snapshot
	}{
		{"nil", nil},
		{"not loaded", &binding.Snapshot{}},
		{"empty", &binding.Snapshot{Loaded: true, Empty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RenderScatter(&buf, tt.snap, ScatterOptions{}); !errors.Is(err, ErrNothingToPlot) {
				t.Errorf("RenderScatter() error = %v, want ErrNothingToPlot", err)
			}
		})
	}
}

func TestLegendCaption(t *testing.T) {
	avg := averageSnapshot()
	if got, want := legendCaption(avg), "Z: Spikiness   Color: red 2024-01-01 to blue 2024-01-03"; got != want {
		t.Errorf("legendCaption(average) = %q, want %q", got, want)
	}

	single := &binding.Snapshot{
		Granularity: models.GranularitySingleImage,
		Bindings: []models.AxisBinding{
			{Axis: models.AxisX, Series: series("Area")},
			{Axis: models.AxisY, Series: series("Perimeter")},
			{Axis: models.AxisZ, Series: series("Elongation")},
			{Axis: models.AxisColor, Series: series("Mean Intensity")},
		},
		ColorMin: 0.1234567,
		ColorMax: 10,
	}
	want := "Z: Elongation   Color: Mean Intensity, red 0.12346 to blue 10"
	if got := legendCaption(single); got != want {
		t.Errorf("legendCaption(single) = %q, want %q", got, want)
	}
}

func TestPlotName(t *testing.T) {
	snap := averageSnapshot()
	if got, want := PlotName(snap), "Organoids average.png"; got != want {
		t.Errorf("PlotName() = %q, want %q", got, want)
	}

	snap.Granularity = models.GranularitySingleImage
	snap.Date = "2024-01-03_10:00:00"
	if got, want := PlotName(snap), "Organoids single-image 2024-01-03_10_00_00.png"; got != want {
		t.Errorf("PlotName() = %q, want %q", got, want)
	}
}

func TestAxisRange(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		min    float64
		max    float64
	}{
		{"spread", []float64{0, 100}, -5, 105},
		{"constant", []float64{50, 50}, 45, 55},
		{"zero", []float64{0}, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := axisRange(tt.values)
			if math.Abs(r.Min-tt.min) > 1e-9 || math.Abs(r.Max-tt.max) > 1e-9 {
				t.Errorf("axisRange(%v) = [%v, %v], want [%v, %v]", tt.values, r.Min, r.Max, tt.min, tt.max)
			}
		})
	}
}

func TestDrawCaption(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 40))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	out := drawCaption(src, "Color")
	if out == image.Image(src) {
		t.Fatal("drawCaption() returned the source image")
	}

	// The strip behind the text darkens the bottom-left corner.
	r, g, b, _ := out.At(4, 30).RGBA()
	if r == 0xffff && g == 0xffff && b == 0xffff {
		t.Errorf("pixel under caption still white: %v", out.At(4, 30))
	}
	if got := drawCaption(src, "  "); got != image.Image(src) {
		t.Error("drawCaption() with blank text should return the input")
	}
}

func TestSaveWorkbook_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := SaveWorkbook(file, "x", statsRows()); err == nil {
		t.Error("SaveWorkbook() into a file path should fail")
	}
}
