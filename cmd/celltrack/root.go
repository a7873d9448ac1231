// Package main is the entry point for the CellTrack TUI.
// Without a subcommand it runs the interactive Bubble Tea program; the
// subcommands script the same backend operations.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/celltrack-tui/internal/app"
	"github.com/j-veylop/celltrack-tui/internal/config"
	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/services"
	"github.com/j-veylop/celltrack-tui/internal/ui/tabs/gallery"
	"github.com/j-veylop/celltrack-tui/internal/ui/tabs/info"
	"github.com/j-veylop/celltrack-tui/internal/ui/tabs/plot"
	"github.com/j-veylop/celltrack-tui/internal/ui/tabs/projects"
	"github.com/j-veylop/celltrack-tui/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "celltrack",
	Short: "Terminal client for the CellTrack microscopy backend",
	Long: `CellTrack TUI browses projects of time-lapse cell images, uploads new
images with their segmentations, and plots the shape and texture metrics the
backend computes per image and per cell.

Configuration is read from environment variables and .env files:
  CELLTRACK_BACKEND_URL        backend base URL (default http://localhost:8000)
  CELLTRACK_REQUEST_TIMEOUT    per-request timeout (default 30s)
  CELLTRACK_HOVER_DEBOUNCE     hover delay before images load (default 100ms)
  CELLTRACK_EXPORT_DIR         folder for workbooks and saved plots
  CELLTRACK_INBOX_DIR          folder watched for image uploads (disabled if empty)
  CELLTRACK_NOTIFY             desktop notifications (default true)
  CELLTRACK_REFRESH_INTERVAL   project list polling interval (default 1m)
  CELLTRACK_JOURNAL_RETENTION  how long request journal rows are kept (default 720h)
  CELLTRACK_LOG_PATH           log file path
  DATABASE_PATH                SQLite request journal path
  LOG_LEVEL                    debug, info, warn or error`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(newProjectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadBatchCmd)
	rootCmd.Version = version.GetVersion()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and starts file logging.
func setup() (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	closer, err := logger.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return cfg, closer, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, logs, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logs.Close() }()

	logger.Info("starting celltrack", "version", version.GetVersion(), "backend", cfg.BackendURL)

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)

	state := model.GetState()
	model.SetTabs([]app.Tab{
		projects.New(state, svcManager.Catalog()),
		gallery.New(state),
		plot.New(state),
		info.New(state, cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
