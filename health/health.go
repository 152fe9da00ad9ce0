// Package health reports whether the broker connection can be opened.
package health

import "time"

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one connection check
type CheckResult struct {
	Status       Status        `json:"status"`
	Message      string        `json:"message"`
	URL          string        `json:"url"`
	WasConnected bool          `json:"was_connected"`
	Connected    bool          `json:"connected"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}
