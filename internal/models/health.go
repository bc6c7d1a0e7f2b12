package models

import "time"

// HealthStatus classifies a sink probe result.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "Healthy"
	HealthDegraded  HealthStatus = "Degraded"
	HealthUnhealthy HealthStatus = "Unhealthy"
)

// worse ranks statuses so aggregation can pick the worst one.
func (s HealthStatus) rank() int {
	switch s {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of two statuses.
func Worst(a, b HealthStatus) HealthStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// SinkHealth reports the probe outcome for one sink.
type SinkHealth struct {
	Sink         string        `json:"sink"`
	Status       HealthStatus  `json:"status"`
	ResponseTime time.Duration `json:"responseTimeMs"`
	Error        string        `json:"error,omitempty"`
}

// HealthReport aggregates per-sink probes to the worst status.
type HealthReport struct {
	Status    HealthStatus `json:"status"`
	Sinks     []SinkHealth `json:"sinks"`
	CheckedAt time.Time    `json:"checkedAt"`
}
