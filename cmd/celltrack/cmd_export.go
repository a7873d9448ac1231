package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/config"
	"github.com/j-veylop/celltrack-tui/internal/export"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

var exportFlags struct {
	output string
}

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Download a project's statistics workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var plotFlags struct {
	mode      string
	condition string
	date      string
	output    string
	width     int
	height    int
}

var plotCmd = &cobra.Command{
	Use:   "plot <project>",
	Short: "Render a project's metric plot to PNG",
	Long: `Render a project's metric plot to PNG.

Modes are average (one point per image), all-cells (every cell of every image)
and single-image (every cell of the image given by --date, coloured by a fourth
metric).`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "Workbook path (default: <export dir>/<project> Metric Tracking.xlsx)")

	f := plotCmd.Flags()
	f.StringVarP(&plotFlags.mode, "mode", "m", "average", "Granularity: average, all-cells or single-image")
	f.StringVarP(&plotFlags.condition, "condition", "c", string(models.DefaultCondition), "Metric selection condition")
	f.StringVar(&plotFlags.date, "date", "", "Image date for single-image mode")
	f.StringVarP(&plotFlags.output, "output", "o", "", "PNG path (default: <export dir>/<generated name>)")
	f.IntVar(&plotFlags.width, "width", 0, "Image width in pixels")
	f.IntVar(&plotFlags.height, "height", 0, "Image height in pixels")
}

func runExport(cmd *cobra.Command, args []string) error {
	project := args[0]
	return withBackend(cmd, func(ctx context.Context, cfg *config.Config, client *backend.Client) error {
		rows, err := client.ExportData(ctx, project)
		if err != nil {
			return fmt.Errorf("export %s: %w", project, err)
		}

		path := exportFlags.output
		if path == "" {
			if path, err = export.SaveWorkbook(cfg.ExportDir, project, rows); err != nil {
				return err
			}
		} else if err := writeFile(path, func(f *os.File) error { return export.WriteWorkbook(f, rows) }); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	})
}

func runPlot(cmd *cobra.Command, args []string) error {
	project := args[0]
	mode, err := models.ParseGranularity(plotFlags.mode)
	if err != nil {
		return err
	}
	cond := models.Condition(plotFlags.condition)
	if !cond.Valid() {
		return fmt.Errorf("unknown condition %q", plotFlags.condition)
	}
	if mode == models.GranularitySingleImage && plotFlags.date == "" {
		return fmt.Errorf("single-image mode needs --date")
	}

	return withBackend(cmd, func(ctx context.Context, cfg *config.Config, client *backend.Client) error {
		b := binding.New(client)
		defer b.Close()

		b.SetProject(project)
		snap, err := b.SetGranularity(ctx, mode, cond, plotFlags.date)
		if err != nil {
			return fmt.Errorf("plot %s: %w", project, err)
		}
		if !snap.Ready() {
			return binding.ErrNoData
		}

		path := plotFlags.output
		if path == "" {
			path = filepath.Join(cfg.ExportDir, export.PlotName(snap))
		}
		opts := export.ScatterOptions{Width: plotFlags.width, Height: plotFlags.height}
		if err := writeFile(path, func(f *os.File) error { return export.RenderScatter(f, snap, opts) }); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	})
}

// writeFile creates path and removes it again if write fails.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
