package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// SpecificImage fetches the raw image captured at date.
func (c *Client) SpecificImage(ctx context.Context, project, date string) ([]byte, error) {
	form := url.Values{}
	form.Set(fieldProject, project)
	form.Set(fieldDate, date)
	return c.fetchBlob(ctx, EndpointSpecificImage, form)
}

// HighlightedImage fetches the image at date with one cell's segmentation outlined.
func (c *Client) HighlightedImage(ctx context.Context, project, date string, cell int) ([]byte, error) {
	return c.fetchBlob(ctx, EndpointHighlightedSegmentation, cellForm(project, date, cell))
}

// SegmentedCell fetches the cropped image of one cell.
func (c *Client) SegmentedCell(ctx context.Context, project, date string, cell int) ([]byte, error) {
	return c.fetchBlob(ctx, EndpointSegmentedCell, cellForm(project, date, cell))
}

// CoverImage fetches a project's cover. It returns nil without error when the
// project has no cover yet.
func (c *Client) CoverImage(ctx context.Context, project string) ([]byte, error) {
	form := url.Values{}
	form.Set(fieldProject, project)

	resp, err := c.postForm(ctx, EndpointCoverImage, form)
	if err != nil {
		return nil, err
	}
	if resp.isJSON() {
		var placeholder struct {
			CoverImage string `json:"cover_image"`
		}
		if err := json.Unmarshal(resp.body, &placeholder); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, EndpointCoverImage, err)
		}
		return nil, nil
	}
	if len(resp.body) == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrMalformed, EndpointCoverImage)
	}
	return resp.body, nil
}

func cellForm(project, date string, cell int) url.Values {
	form := url.Values{}
	form.Set(fieldProject, project)
	form.Set(fieldDate, date)
	form.Set(fieldSegmentationIndex, strconv.Itoa(cell))
	return form
}

func (c *Client) fetchBlob(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}
	if len(resp.body) == 0 || resp.isJSON() {
		return nil, fmt.Errorf("%w: %s: expected image data", ErrMalformed, endpoint)
	}
	return resp.body, nil
}
