package models

import "time"

// Wire shapes shared between the backend API and the worker daemon.

// ClaimTicket is one exclusively claimed monitor handed to a worker.
type ClaimTicket struct {
	MonitorID string `json:"id"`
	URL       string `json:"url"`
	Label     string `json:"label,omitempty"`
}

// ClaimRequest asks the scheduler for up to Count due monitors.
type ClaimRequest struct {
	Count int `json:"count"`
}

// ResultRequest closes a claim with the observed outcome. CheckedAt is
// optional; the recorder defaults it to the time of recording.
type ResultRequest struct {
	MonitorID  string     `json:"monitor_id"`
	StatusCode *int       `json:"status_code,omitempty"`
	ErrorText  *string    `json:"error_text,omitempty"`
	LatencyMS  *float64   `json:"latency_ms,omitempty"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
}

// ResultEvent is published on the event bus after every recorded result.
type ResultEvent struct {
	ResultID   string    `json:"result_id"`
	MonitorID  string    `json:"monitor_id"`
	StatusCode *int      `json:"status_code"`
	ErrorText  *string   `json:"error_text"`
	LatencyMS  *float64  `json:"latency_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}
