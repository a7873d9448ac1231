package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"

	"github.com/j-veylop/celltrack-tui/internal/models"
)

type projectsResponse struct {
	Images       []string `json:"Project Images"`
	Titles       []string `json:"Project Titles"`
	Descriptions []string `json:"Project Descriptions"`
}

// ListProjects returns every project known to the backend.
func (c *Client) ListProjects(ctx context.Context) (models.ProjectList, error) {
	resp, err := c.get(ctx, EndpointProjectsData)
	if err != nil {
		return nil, err
	}

	var pr projectsResponse
	if err := json.Unmarshal(resp.body, &pr); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, EndpointProjectsData, err)
	}
	if len(pr.Images) != len(pr.Titles) || len(pr.Descriptions) != len(pr.Titles) {
		return nil, fmt.Errorf("%w: %s: %d titles, %d descriptions, %d images",
			ErrMalformed, EndpointProjectsData, len(pr.Titles), len(pr.Descriptions), len(pr.Images))
	}

	projects := make(models.ProjectList, len(pr.Titles))
	for i := range pr.Titles {
		projects[i] = models.Project{
			Title:       pr.Titles[i],
			Description: pr.Descriptions[i],
			CoverImage:  pr.Images[i],
		}
	}
	if err := projects.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, EndpointProjectsData, err)
	}
	return projects, nil
}

// CreateProject adds an empty project.
func (c *Client) CreateProject(ctx context.Context, title, description string) error {
	if title == "" {
		return fmt.Errorf("project title is empty")
	}
	form := url.Values{}
	form.Set(fieldTitle, title)
	form.Set(fieldDescription, description)

	resp, err := c.postForm(ctx, EndpointAddProject, form)
	if err != nil {
		return err
	}
	return c.expectAck(EndpointAddProject, title, resp)
}

// ExportData returns the project's statistics grid: per metric, the mean,
// median, STD, range and IQR of every image.
func (c *Client) ExportData(ctx context.Context, project string) ([]models.ExportRow, error) {
	form := url.Values{}
	form.Set(fieldProject, project)

	resp, err := c.postForm(ctx, EndpointExport, form)
	if err != nil {
		return nil, err
	}

	var out struct {
		Success *bool              `json:"Success"`
		Data    []models.ExportRow `json:"Data"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, EndpointExport, err)
	}
	if out.Success != nil && !*out.Success {
		return nil, fmt.Errorf("%s: %w", EndpointExport, ErrUnsuccessful)
	}
	return out.Data, nil
}

// File is a named upload payload.
type File struct {
	Name   string
	Reader io.Reader
}

// ImageUpload is one image plus its segmentation mask CSV.
type ImageUpload struct {
	Image        File
	Segmentation File
	// Captured is the capture date-time label; empty lets the backend use the upload time.
	Captured string
}

// UploadImage adds one image and its segmentation to a project.
func (c *Client) UploadImage(ctx context.Context, project string, up ImageUpload) error {
	body, contentType, err := buildMultipart(
		map[string]string{fieldProject: project, "date-time": up.Captured},
		map[string]File{"image": up.Image, "segmentation_csv": up.Segmentation},
	)
	if err != nil {
		return err
	}

	resp, err := c.postMultipart(ctx, EndpointUploadImage, project, body, contentType)
	if err != nil {
		return err
	}
	return c.expectAck(EndpointUploadImage, project, resp)
}

// BatchUpload is a set of array files holding many images, their names and annotations.
type BatchUpload struct {
	Images      File
	Names       File
	Annotations File
}

// UploadManyImages adds a batch of images to a project.
func (c *Client) UploadManyImages(ctx context.Context, project string, up BatchUpload) error {
	body, contentType, err := buildMultipart(
		map[string]string{fieldProject: project},
		map[string]File{"images": up.Images, "names": up.Names, "annotations": up.Annotations},
	)
	if err != nil {
		return err
	}

	resp, err := c.postMultipart(ctx, EndpointUploadManyImages, project, body, contentType)
	if err != nil {
		return err
	}
	return c.expectAck(EndpointUploadManyImages, project, resp)
}

func buildMultipart(fields map[string]string, files map[string]File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	for field, f := range files {
		if f.Reader == nil {
			return nil, "", fmt.Errorf("missing upload file for %s", field)
		}
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", field, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize upload: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
