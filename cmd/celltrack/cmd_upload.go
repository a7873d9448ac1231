package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/config"
	"github.com/j-veylop/celltrack-tui/internal/services"
)

var uploadFlags struct {
	image        string
	segmentation string
	date         string
}

var uploadCmd = &cobra.Command{
	Use:   "upload <project>",
	Short: "Upload one image and its segmentation CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var uploadBatchFlags struct {
	images      string
	names       string
	annotations string
}

var uploadBatchCmd = &cobra.Command{
	Use:   "upload-batch <project>",
	Short: "Upload many images from array files",
	Args:  cobra.ExactArgs(1),
	RunE:  runUploadBatch,
}

func init() {
	f := uploadCmd.Flags()
	f.StringVarP(&uploadFlags.image, "image", "i", "", "Image file (required)")
	f.StringVarP(&uploadFlags.segmentation, "segmentation", "s", "", "Segmentation CSV (required)")
	f.StringVar(&uploadFlags.date, "date", "", "Capture date-time label; empty lets the backend stamp it")
	_ = uploadCmd.MarkFlagRequired("image")
	_ = uploadCmd.MarkFlagRequired("segmentation")

	bf := uploadBatchCmd.Flags()
	bf.StringVar(&uploadBatchFlags.images, "images", "", "Image array file (required)")
	bf.StringVar(&uploadBatchFlags.names, "names", "", "Image name array file (required)")
	bf.StringVar(&uploadBatchFlags.annotations, "annotations", "", "Annotation array file (required)")
	_ = uploadBatchCmd.MarkFlagRequired("images")
	_ = uploadBatchCmd.MarkFlagRequired("names")
	_ = uploadBatchCmd.MarkFlagRequired("annotations")
}

func runUpload(cmd *cobra.Command, args []string) error {
	project := args[0]
	return withBackend(cmd, func(ctx context.Context, _ *config.Config, client *backend.Client) error {
		err := services.UploadFiles(ctx, client, project, uploadFlags.image, uploadFlags.segmentation, uploadFlags.date)
		if err != nil {
			return fmt.Errorf("upload %s: %w", filepath.Base(uploadFlags.image), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %q\n", filepath.Base(uploadFlags.image), project)
		return nil
	})
}

func runUploadBatch(cmd *cobra.Command, args []string) error {
	project := args[0]

	paths := []string{uploadBatchFlags.images, uploadBatchFlags.names, uploadBatchFlags.annotations}
	files := make([]backend.File, len(paths))
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		files[i] = backend.File{Name: filepath.Base(p), Reader: f}
	}

	return withBackend(cmd, func(ctx context.Context, _ *config.Config, client *backend.Client) error {
		up := backend.BatchUpload{Images: files[0], Names: files[1], Annotations: files[2]}
		if err := client.UploadManyImages(ctx, project, up); err != nil {
			return fmt.Errorf("batch upload: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded batch to %q\n", project)
		return nil
	})
}
