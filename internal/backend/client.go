// Package backend is the REST client for the cell-tracking analysis server.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// Endpoint paths served by the analysis backend.
const (
	EndpointProjectsData            = "get_projects_data"
	EndpointCoverImage              = "get_cover_image"
	EndpointAddProject              = "add_new_project"
	EndpointUploadImage             = "upload_image"
	EndpointUploadManyImages        = "upload_many_images"
	EndpointSpecificImage           = "get_specific_image"
	EndpointHighlightedSegmentation = "get_whole_image_with_highlighted_segmentation"
	EndpointSegmentedCell           = "get_segmented_cell_image"
	EndpointExport                  = "get_project_data_to_export"

	EndpointConditionAverage     = "get_metrics_with_specific_condition_to_plot"
	EndpointConditionAllCells    = "get_metrics_with_specific_condition_to_plot_all_cell_masks"
	EndpointConditionSingleImage = "get_metrics_with_specific_condition_to_plot_all_cell_masks_single_image"

	EndpointPCAAverage     = "get_pca_metrics_average_cell_masks"
	EndpointPCAAllCells    = "get_pca_metrics_all_cell_masks"
	EndpointPCASingleImage = "get_pca_metrics_all_cell_masks_single_image"

	EndpointSpecificAverage     = "get_specific_metrics_to_plot"
	EndpointSpecificAllCells    = "get_specific_metrics_to_plot_all_cell_masks"
	EndpointSpecificSingleImage = "get_specific_metrics_to_plot_single_image"
)

// Form field names understood by the backend.
const (
	fieldProject           = "Project"
	fieldCondition         = "Condition"
	fieldDate              = "Date"
	fieldParameter         = "Parameter"
	fieldSegmentationIndex = "Segmentation Index"
	fieldTitle             = "Title"
	fieldDescription       = "Description"
)

var otherParameterFields = []string{"Other Parameter One", "Other Parameter Two", "Other Parameter Three"}

var (
	// ErrUnsuccessful is returned when the backend answers with Success=false.
	ErrUnsuccessful = errors.New("backend reported unsuccessful request")
	// ErrMalformed is returned when a response does not have the expected shape.
	ErrMalformed = errors.New("malformed backend response")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Endpoint, e.Code, e.Body)
}

// Recorder receives one journal entry per completed request.
type Recorder interface {
	RecordCall(call *models.APICall) error
}

// Client talks to the analysis backend over HTTP.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	recorder Recorder
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRecorder journals every request to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// response is a fully read HTTP response.
type response struct {
	body        []byte
	contentType string
}

func (r *response) isJSON() bool {
	mt, _, err := mime.ParseMediaType(r.contentType)
	return err == nil && mt == "application/json"
}

// postForm issues a form-encoded POST.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*response, error) {
	return c.do(ctx, endpoint, form.Get(fieldProject), func(u string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// get issues a bodiless GET.
func (c *Client) get(ctx context.Context, endpoint string) (*response, error) {
	return c.do(ctx, endpoint, "", func(u string) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
}

// postMultipart issues a multipart POST with a prepared body.
func (c *Client) postMultipart(ctx context.Context, endpoint, project string, body *bytes.Buffer, contentType string) (*response, error) {
	return c.do(ctx, endpoint, project, func(u string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
}

func (c *Client) do(ctx context.Context, endpoint, project string, build func(u string) (*http.Request, error)) (*response, error) {
	start := c.now()
	call := &models.APICall{Timestamp: start, Endpoint: endpoint, Project: project}
	defer func() {
		call.DurationMs = int(c.now().Sub(start).Milliseconds())
		c.record(call)
	}()

	req, err := build(c.baseURL.JoinPath(endpoint).String())
	if err != nil {
		call.Error = err.Error()
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		call.Error = err.Error()
		logger.Error("backend request failed", "endpoint", endpoint, "project", project, "error", err)
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	call.StatusCode = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		call.Error = err.Error()
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	call.Bytes = int64(len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: truncate(string(body), 200)}
		call.Error = serr.Error()
		logger.Error("backend returned error status", "endpoint", endpoint, "project", project, "status", resp.StatusCode)
		return nil, serr
	}

	return &response{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}

func (c *Client) record(call *models.APICall) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordCall(call); err != nil {
		logger.Warn("failed to journal backend call", "endpoint", call.Endpoint, "error", err)
	}
}

// ack is the minimal acknowledgement shape; json matching is case-insensitive
// so it covers both "Success" and "success".
type ack struct {
	Success *bool `json:"Success"`
}

func (a ack) failed() bool {
	return a.Success != nil && !*a.Success
}

func (c *Client) expectAck(endpoint, project string, resp *response) error {
	var a ack
	if err := json.Unmarshal(resp.body, &a); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, endpoint, err)
	}
	if a.failed() {
		logger.Warn("backend reported failure", "endpoint", endpoint, "project", project)
		return fmt.Errorf("%s: %w", endpoint, ErrUnsuccessful)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
