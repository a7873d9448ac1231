package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/config"
	"github.com/j-veylop/celltrack-tui/internal/models"
	"github.com/j-veylop/celltrack-tui/internal/services"
)

var projectsFlags struct {
	output string
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects on the backend",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var newProjectFlags struct {
	description string
}

var newProjectCmd = &cobra.Command{
	Use:   "new-project <title>",
	Short: "Create an empty project",
	Args:  cobra.ExactArgs(1),
	RunE:  runNewProject,
}

func init() {
	projectsCmd.Flags().StringVarP(&projectsFlags.output, "output", "o", "table", "Output format: table or yaml")
	newProjectCmd.Flags().StringVarP(&newProjectFlags.description, "description", "d", "", "Project description")
}

// withBackend opens the request journal and the backend client for one
// command run.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, client *backend.Client) error) error {
	cfg, logs, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logs.Close() }()

	client, database, err := services.OpenBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, cfg, client)
}

func runProjects(cmd *cobra.Command, _ []string) error {
	if projectsFlags.output != "table" && projectsFlags.output != "yaml" {
		return fmt.Errorf("unknown output format %q", projectsFlags.output)
	}
	return withBackend(cmd, func(ctx context.Context, _ *config.Config, client *backend.Client) error {
		list, err := client.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		return writeProjects(cmd.OutOrStdout(), list, projectsFlags.output)
	})
}

func writeProjects(w io.Writer, list models.ProjectList, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No projects")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TITLE", "DESCRIPTION", "IMAGES")
	for _, p := range list {
		images := "-"
		if p.HasCover() {
			images = "yes"
		}
		t.Row(p.Title, p.Description, images)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func runNewProject(cmd *cobra.Command, args []string) error {
	return withBackend(cmd, func(ctx context.Context, _ *config.Config, client *backend.Client) error {
		if err := client.CreateProject(ctx, args[0], newProjectFlags.description); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %q\n", args[0])
		return nil
	})
}
