package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/celltrack-tui/internal/models"
)

// InsertAPICall journals a backend request.
func (db *DB) InsertAPICall(call *models.APICall) error {
	query := `
		INSERT INTO api_calls (
			timestamp, endpoint, project, duration_ms, status_code, bytes, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := call.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.UTC().Format(sqlTimeLayout),
		call.Endpoint,
		nullString(call.Project),
		call.DurationMs,
		call.StatusCode,
		call.Bytes,
		nullString(call.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert API call: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		call.ID = id
	}

	return nil
}

// RecordCall implements the backend client's journal hook.
func (db *DB) RecordCall(call *models.APICall) error {
	return db.InsertAPICall(call)
}

// GetRecentAPICalls returns the most recent calls, newest first.
func (db *DB) GetRecentAPICalls(limit int) ([]models.APICall, error) {
	query := `
		SELECT id, timestamp, endpoint, project, duration_ms, status_code, bytes, error
		FROM api_calls
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent API calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var calls []models.APICall
	for rows.Next() {
		var call models.APICall
		var ts string
		var project, errStr sql.NullString

		err := rows.Scan(
			&call.ID,
			&ts,
			&call.Endpoint,
			&project,
			&call.DurationMs,
			&call.StatusCode,
			&call.Bytes,
			&errStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API call: %w", err)
		}

		call.Timestamp = parseTimestamp(ts)
		call.Project = project.String
		call.Error = errStr.String
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// GetEndpointStats aggregates calls per endpoint within the last window.
// A zero window covers the whole journal.
func (db *DB) GetEndpointStats(window time.Duration) ([]models.EndpointStats, error) {
	query := `
		SELECT
			endpoint,
			COUNT(*) as calls,
			SUM(CASE WHEN status_code >= 400 OR error IS NOT NULL THEN 1 ELSE 0 END) as failures,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			MAX(timestamp) as last_called
		FROM api_calls
		WHERE timestamp >= ?
		GROUP BY endpoint
		ORDER BY calls DESC, endpoint
	`

	rows, err := db.QueryContext(context.Background(), query, windowStart(window))
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoint stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []models.EndpointStats
	for rows.Next() {
		var s models.EndpointStats
		var last string
		if err := rows.Scan(&s.Endpoint, &s.Calls, &s.Failures, &s.AvgDurationMs, &last); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint stats: %w", err)
		}
		s.LastCalled = parseTimestamp(last)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetJournalStats returns totals over the whole journal.
func (db *DB) GetJournalStats() (*models.JournalStats, error) {
	query := `
		SELECT
			COUNT(*) as total_calls,
			COALESCE(SUM(CASE WHEN status_code >= 400 OR error IS NOT NULL THEN 1 ELSE 0 END), 0) as failures,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			COALESCE(SUM(bytes), 0) as total_bytes,
			COUNT(DISTINCT project) as projects
		FROM api_calls
	`

	var stats models.JournalStats
	err := db.QueryRowContext(context.Background(), query).Scan(
		&stats.TotalCalls,
		&stats.Failures,
		&stats.AvgDurationMs,
		&stats.TotalBytes,
		&stats.Projects,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal stats: %w", err)
	}

	return &stats, nil
}

// PruneOlderThan deletes journal entries older than age and returns how many were removed.
func (db *DB) PruneOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UTC().Format(sqlTimeLayout)
	result, err := db.ExecContext(context.Background(), "DELETE FROM api_calls WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune API calls: %w", err)
	}
	return result.RowsAffected()
}

func windowStart(window time.Duration) string {
	if window <= 0 {
		return "0000-01-01 00:00:00"
	}
	return time.Now().Add(-window).UTC().Format(sqlTimeLayout)
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if len(s) > len(sqlTimeLayout) {
		s = s[:len(sqlTimeLayout)]
	}
	t, err := time.Parse(sqlTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
