package models

import "time"

const (
	MaxURLLength     = 2048
	MaxLabelLength   = 255
	MaxFrequencyMins = 1440
)

// Monitor is one URL under observation. Claimed marks an in-flight check
// lease; NextDueAt == nil means the monitor has never been scheduled and
// is due immediately.
type Monitor struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	URL              string     `json:"url"`
	Label            string     `json:"label,omitempty"`
	FrequencyMinutes int        `json:"frequency_minutes"`
	NextDueAt        *time.Time `json:"next_due_at,omitempty"`
	Claimed          bool       `json:"claimed"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Frequency returns the check interval as a duration.
func (m *Monitor) Frequency() time.Duration {
	return time.Duration(m.FrequencyMinutes) * time.Minute
}

// MonitorWithResults bundles a monitor with its most recent results for
// read endpoints.
type MonitorWithResults struct {
	*Monitor
	Results []*CheckResult `json:"results"`
}
