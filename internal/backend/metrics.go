package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// MetricsResult is a decoded metric fetch.
type MetricsResult struct {
	Granularity models.Granularity
	// Dates are the image date labels in backend order. Single-image results
	// carry the requested date only.
	Dates []string
	// Series are ordered as the backend listed them.
	Series   []models.MetricSeries
	Outliers models.OutlierSet
}

// Find returns the series with the given name.
func (r *MetricsResult) Find(name string) (models.MetricSeries, bool) {
	for _, s := range r.Series {
		if s.Name == name {
			return s, true
		}
	}
	return models.MetricSeries{}, false
}

// Empty reports whether the result holds no observations.
func (r *MetricsResult) Empty() bool {
	return len(r.Series) == 0 || r.Series[0].Len() == 0
}

// MetricQuery selects what a metric fetch returns.
type MetricQuery struct {
	Project     string
	Granularity models.Granularity
	// Date scopes single-image queries.
	Date string
}

func (q MetricQuery) form() url.Values {
	form := url.Values{}
	form.Set(fieldProject, q.Project)
	if q.Granularity == models.GranularitySingleImage {
		form.Set(fieldDate, q.Date)
	}
	return form
}

// ConditionMetrics asks the backend to pick the metrics that best satisfy a
// condition. Principal Components routes to the PCA endpoints.
func (c *Client) ConditionMetrics(ctx context.Context, q MetricQuery, cond models.Condition) (*MetricsResult, error) {
	if cond.IsPCA() {
		return c.PCAMetrics(ctx, q)
	}

	var endpoint string
	switch q.Granularity {
	case models.GranularityAverage:
		endpoint = EndpointConditionAverage
	case models.GranularityAllCells:
		endpoint = EndpointConditionAllCells
	case models.GranularitySingleImage:
		endpoint = EndpointConditionSingleImage
	default:
		return nil, fmt.Errorf("unsupported granularity %v", q.Granularity)
	}

	form := q.form()
	form.Set(fieldCondition, string(cond))
	return c.fetchMetrics(ctx, endpoint, q, form)
}

// PCAMetrics fetches principal-component score series.
func (c *Client) PCAMetrics(ctx context.Context, q MetricQuery) (*MetricsResult, error) {
	var endpoint string
	switch q.Granularity {
	case models.GranularityAverage:
		endpoint = EndpointPCAAverage
	case models.GranularityAllCells:
		endpoint = EndpointPCAAllCells
	case models.GranularitySingleImage:
		endpoint = EndpointPCASingleImage
	default:
		return nil, fmt.Errorf("unsupported granularity %v", q.Granularity)
	}
	return c.fetchMetrics(ctx, endpoint, q, q.form())
}

// SpecificMetric fetches one manually chosen metric. others are the names bound
// to the remaining axes; they are sent as hints outside average mode.
func (c *Client) SpecificMetric(ctx context.Context, q MetricQuery, metric string, others []string) (*MetricsResult, error) {
	var endpoint string
	switch q.Granularity {
	case models.GranularityAverage:
		endpoint = EndpointSpecificAverage
	case models.GranularityAllCells:
		endpoint = EndpointSpecificAllCells
	case models.GranularitySingleImage:
		endpoint = EndpointSpecificSingleImage
	default:
		return nil, fmt.Errorf("unsupported granularity %v", q.Granularity)
	}

	form := q.form()
	form.Set(fieldParameter, metric)
	if q.Granularity != models.GranularityAverage {
		if len(others) > len(otherParameterFields) {
			return nil, fmt.Errorf("too many hint metrics: %d", len(others))
		}
		for i, name := range others {
			form.Set(otherParameterFields[i], name)
		}
	}

	res, err := c.fetchMetrics(ctx, endpoint, q, form)
	if err != nil {
		return nil, err
	}
	if _, ok := res.Find(metric); !ok && !res.Empty() {
		return nil, fmt.Errorf("%w: %s: metric %q missing from response", ErrMalformed, endpoint, metric)
	}
	return res, nil
}

// metricsEnvelope holds the raw pieces shared by every metric response.
type metricsEnvelope struct {
	Success    *bool           `json:"Success"`
	Parameters json.RawMessage `json:"Parameter Dictionary"`
	Outliers   json.RawMessage `json:"Outliers"`
}

type averagePoint struct {
	Date  string  `json:"Date"`
	Value float64 `json:"Value"`
}

type cellsPoint struct {
	Date   string    `json:"Date"`
	Values []float64 `json:"Values"`
}

func (c *Client) fetchMetrics(ctx context.Context, endpoint string, q MetricQuery, form url.Values) (*MetricsResult, error) {
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}

	res, err := decodeMetrics(resp.body, q)
	if err != nil {
		logger.Warn("metric fetch rejected", "endpoint", endpoint, "project", q.Project, "error", err)
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return res, nil
}

// decodeMetrics turns a metric response body into a MetricsResult, keeping the
// backend's key order for the parameter dictionary.
func decodeMetrics(body []byte, q MetricQuery) (*MetricsResult, error) {
	var env metricsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Success != nil && !*env.Success {
		return nil, ErrUnsuccessful
	}
	if len(env.Parameters) == 0 || string(env.Parameters) == "null" {
		return nil, fmt.Errorf("%w: missing parameter dictionary", ErrMalformed)
	}

	names, raws, err := orderedObject(env.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	res := &MetricsResult{Granularity: q.Granularity}
	for i, name := range names {
		series, dates, err := decodeSeries(name, raws[i], q.Granularity)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			res.Dates = dates
		} else if err := checkAligned(res, series, dates); err != nil {
			return nil, err
		}
		res.Series = append(res.Series, series)
	}
	if q.Granularity == models.GranularitySingleImage {
		res.Dates = []string{q.Date}
	}

	if q.Granularity.HasOutliers() {
		res.Outliers, err = decodeOutliers(env.Outliers, q.Granularity)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func decodeSeries(name string, raw json.RawMessage, g models.Granularity) (models.MetricSeries, []string, error) {
	s := models.MetricSeries{Name: name, Granularity: g}
	switch g {
	case models.GranularityAverage:
		var pts []averagePoint
		if err := json.Unmarshal(raw, &pts); err != nil {
			return s, nil, fmt.Errorf("%w: series %q: %v", ErrMalformed, name, err)
		}
		dates := make([]string, len(pts))
		s.Average = make([]float64, len(pts))
		for i, p := range pts {
			dates[i] = p.Date
			s.Average[i] = p.Value
		}
		return s, dates, nil
	case models.GranularityAllCells:
		var pts []cellsPoint
		if err := json.Unmarshal(raw, &pts); err != nil {
			return s, nil, fmt.Errorf("%w: series %q: %v", ErrMalformed, name, err)
		}
		dates := make([]string, len(pts))
		s.Cells = make([][]float64, len(pts))
		for i, p := range pts {
			dates[i] = p.Date
			s.Cells[i] = p.Values
		}
		return s, dates, nil
	default:
		var values []float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return s, nil, fmt.Errorf("%w: series %q: %v", ErrMalformed, name, err)
		}
		s.Cells = [][]float64{values}
		return s, nil, nil
	}
}

// checkAligned verifies a series covers the same images and cells as the first one.
func checkAligned(res *MetricsResult, s models.MetricSeries, dates []string) error {
	first := res.Series[0]
	if s.Len() != first.Len() {
		return fmt.Errorf("%w: series %q has %d images, want %d", ErrMalformed, s.Name, s.Len(), first.Len())
	}
	for i := range dates {
		if dates[i] != res.Dates[i] {
			return fmt.Errorf("%w: series %q date %d is %q, want %q", ErrMalformed, s.Name, i, dates[i], res.Dates[i])
		}
	}
	for i := range s.Cells {
		if len(s.Cells[i]) != len(first.Cells[i]) {
			return fmt.Errorf("%w: series %q image %d has %d cells, want %d",
				ErrMalformed, s.Name, i, len(s.Cells[i]), len(first.Cells[i]))
		}
	}
	return nil
}

func decodeOutliers(raw json.RawMessage, g models.Granularity) (models.OutlierSet, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if g == models.GranularitySingleImage {
		var flat []int
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("%w: outliers: %v", ErrMalformed, err)
		}
		return models.OutlierSet{flat}, nil
	}
	var nested [][]int
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("%w: outliers: %v", ErrMalformed, err)
	}
	return models.OutlierSet(nested), nil
}

// orderedObject splits a JSON object into its keys and raw values in document order.
func orderedObject(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	return keys, values, nil
}
