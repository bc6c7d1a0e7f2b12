package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RetentionCategory marks where an event sits in its retention lifecycle.
type RetentionCategory string

const (
	RetentionOperational RetentionCategory = "OPERATIONAL"
	RetentionArchival    RetentionCategory = "ARCHIVAL"
)

// RiskLevel classifies the sensitivity of a recorded action.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// EventStatus captures the outcome of the recorded action.
const (
	StatusSuccess = "Success"
	StatusFailure = "Failure"
)

// Metadata stores free-form key/value context persisted as JSONB.
type Metadata map[string]string

// Value marshals metadata to JSON for persistence.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal event metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Metadata", value)
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal event metadata: %w", err)
	}
	return nil
}

// AuditEvent is one recorded action. Identity fields (id, timestamp, actor,
// action, resource) are never mutated after persistence; only retention
// category and protection-related fields may change in place.
type AuditEvent struct {
	ID            string            `db:"id" json:"id"`
	Timestamp     time.Time         `db:"timestamp" json:"timestamp"`
	ActorID       string            `db:"actor_id" json:"actorId"`
	Action        string            `db:"action" json:"action"`
	Resource      string            `db:"resource" json:"resource"`
	IPAddress     string            `db:"ip_address" json:"ipAddress,omitempty"`
	SessionID     string            `db:"session_id" json:"sessionId,omitempty"`
	Status        string            `db:"status" json:"status"`
	Metadata      Metadata          `db:"metadata" json:"metadata,omitempty"`
	CorrelationID *string           `db:"correlation_id" json:"correlationId,omitempty"`
	RiskLevel     RiskLevel         `db:"risk_level" json:"riskLevel,omitempty"`
	Sensitive     bool              `db:"sensitive" json:"sensitive"`
	IntegrityHash *string           `db:"integrity_hash" json:"integrityHash,omitempty"`
	Retention     RetentionCategory `db:"retention" json:"retention"`
}

// Clone returns a deep copy so protection can rewrite fields without
// mutating the caller's event.
func (e *AuditEvent) Clone() *AuditEvent {
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = make(Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	if e.CorrelationID != nil {
		id := *e.CorrelationID
		clone.CorrelationID = &id
	}
	if e.IntegrityHash != nil {
		h := *e.IntegrityHash
		clone.IntegrityHash = &h
	}
	return &clone
}

// AssessRisk applies the static risk policy. Destructive actions are High
// regardless of outcome; failed authentication is Medium; changes to
// security configuration are Critical.
func AssessRisk(action, status string) RiskLevel {
	normalized := strings.ToLower(action)
	switch {
	case strings.Contains(normalized, "security") || strings.Contains(normalized, "permission"):
		return RiskCritical
	case strings.Contains(normalized, "delete") || strings.Contains(normalized, "purge"):
		return RiskHigh
	case strings.Contains(normalized, "login") && status != StatusSuccess:
		return RiskMedium
	case strings.Contains(normalized, "export"):
		return RiskMedium
	default:
		return RiskLow
	}
}

// AuditEventFilter is a query specification; all fields are optional and an
// empty filter matches everything up to the max-results cap.
type AuditEventFilter struct {
	From          *time.Time        `json:"from,omitempty" form:"from"`
	To            *time.Time        `json:"to,omitempty" form:"to"`
	ActorID       string            `json:"actorId,omitempty" form:"actorId"`
	Action        string            `json:"action,omitempty" form:"action"`
	Resource      string            `json:"resource,omitempty" form:"resource"`
	Status        string            `json:"status,omitempty" form:"status" validate:"omitempty,oneof=Success Failure"`
	SessionID     string            `json:"sessionId,omitempty" form:"sessionId"`
	CorrelationID string            `json:"correlationId,omitempty" form:"correlationId"`
	RiskLevel     RiskLevel         `json:"riskLevel,omitempty" form:"riskLevel" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Retention     RetentionCategory `json:"retention,omitempty" form:"retention" validate:"omitempty,oneof=OPERATIONAL ARCHIVAL"`
	Search        string            `json:"search,omitempty" form:"search"`
	MaxResults    int               `json:"maxResults,omitempty" form:"maxResults" validate:"min=0"`
	Skip          int               `json:"skip,omitempty" form:"skip" validate:"min=0"`
	SortBy        string            `json:"sortBy,omitempty" form:"sortBy" validate:"omitempty,oneof=timestamp actorId action riskLevel resource"`
	SortAsc       bool              `json:"sortAsc,omitempty" form:"sortAsc"`
}

// Normalize bounds pagination and applies the default sort.
func (f *AuditEventFilter) Normalize(defaultMax int) {
	if defaultMax <= 0 {
		defaultMax = 1000
	}
	if f.MaxResults <= 0 || f.MaxResults > defaultMax {
		f.MaxResults = defaultMax
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.SortBy == "" {
		f.SortBy = "timestamp"
	}
}

// AuditStatistics aggregates counts over a query window.
type AuditStatistics struct {
	PeriodStart   time.Time      `json:"periodStart"`
	PeriodEnd     time.Time      `json:"periodEnd"`
	TotalEvents   int            `json:"totalEvents"`
	ByAction      map[string]int `json:"byAction"`
	ByStatus      map[string]int `json:"byStatus"`
	ByRiskLevel   map[string]int `json:"byRiskLevel"`
	ByActor       map[string]int `json:"byActor"`
	SensitiveHits int            `json:"sensitiveHits"`
}
