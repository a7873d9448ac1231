// Package export writes project statistics workbooks and plot images.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/j-veylop/celltrack-tui/internal/models"
)

// SheetName is the only sheet in an exported workbook.
const SheetName = "Sheet1"

// ErrNoRows is returned when there is nothing to export.
var ErrNoRows = errors.New("no statistics to export")

// WorkbookName is the file name the export is saved under.
func WorkbookName(project string) string {
	return sanitize(project) + " Metric Tracking.xlsx"
}

// sanitize keeps a project title usable as a file name.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Untitled"
	}
	return name
}

// Workbook builds the statistics workbook. The first row is written as a bold,
// frozen header.
func Workbook(rows []models.ExportRow) (*excelize.File, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	width := 0
	for r, row := range rows {
		width = max(width, len(row))
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("invalid cell at row %d column %d: %w", r+1, c+1, err)
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if width > 0 {
		last, _ := excelize.CoordinatesToCellName(width, 1)
		if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "A", 42); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to size metric column: %w", err)
	}
	err = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	return f, nil
}

// WriteWorkbook streams the workbook to w.
func WriteWorkbook(w io.Writer, rows []models.ExportRow) error {
	f, err := Workbook(rows)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the project's workbook into dir and returns its path.
func SaveWorkbook(dir, project string, rows []models.ExportRow) (string, error) {
	f, err := Workbook(rows)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	path := filepath.Join(dir, WorkbookName(project))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}
