// Package models defines data structures and domain types.
package models

import "time"

// APICall represents one backend request recorded in the local journal.
type APICall struct {
	Timestamp  time.Time
	Endpoint   string
	Project    string
	Error      string
	DurationMs int
	StatusCode int
	Bytes      int64
	ID         int64
}

// Failed reports whether the call ended in a transport, HTTP or application error.
func (c APICall) Failed() bool {
	return c.Error != "" || c.StatusCode >= 400
}

// EndpointStats aggregates journal entries for one endpoint.
type EndpointStats struct {
	Endpoint      string
	Calls         int
	Failures      int
	AvgDurationMs float64
	LastCalled    time.Time
}

// JournalStats aggregates the whole request journal.
type JournalStats struct {
	TotalCalls    int
	Failures      int
	AvgDurationMs float64
	TotalBytes    int64
	Projects      int
}

// FailureRate returns the share of failed calls in [0,1].
func (s JournalStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.TotalCalls)
}
