package models

import "time"

// CheckResult is one immutable outcome of one check execution. StatusCode
// is nil when the probe never completed; ErrorText carries the transport
// error in that case.
type CheckResult struct {
	ID         string    `json:"id"`
	MonitorID  string    `json:"monitor_id"`
	StatusCode *int      `json:"status_code"`
	ErrorText  *string   `json:"error_text"`
	LatencyMS  *float64  `json:"latency_ms"`
	CheckedAt  time.Time `json:"checked_at"`
	CreatedAt  time.Time `json:"created_at"`
}
