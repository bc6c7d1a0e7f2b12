package dto

import (
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// RecordEventRequest is the payload for recording a single audit event.
type RecordEventRequest struct {
	Timestamp     *time.Time        `json:"timestamp"`
	ActorID       string            `json:"actorId" binding:"required"`
	Action        string            `json:"action" binding:"required"`
	Resource      string            `json:"resource" binding:"required"`
	IPAddress     string            `json:"ipAddress"`
	SessionID     string            `json:"sessionId"`
	Status        string            `json:"status" binding:"required,oneof=Success Failure"`
	Metadata      map[string]string `json:"metadata"`
	CorrelationID string            `json:"correlationId"`
	Sensitive     bool              `json:"sensitive"`
}

// ToModel builds an AuditEvent from the request. ID, integrity hash and risk
// level are filled in by the service.
func (r *RecordEventRequest) ToModel() *models.AuditEvent {
	event := &models.AuditEvent{
		ActorID:   r.ActorID,
		Action:    r.Action,
		Resource:  r.Resource,
		IPAddress: r.IPAddress,
		SessionID: r.SessionID,
		Status:    r.Status,
		Metadata:  models.Metadata(r.Metadata),
		Sensitive: r.Sensitive,
		Retention: models.RetentionOperational,
	}
	if r.Timestamp != nil {
		event.Timestamp = *r.Timestamp
	}
	if r.CorrelationID != "" {
		id := r.CorrelationID
		event.CorrelationID = &id
	}
	return event
}

// RecordBatchRequest wraps multiple events recorded in one call.
type RecordBatchRequest struct {
	Events []RecordEventRequest `json:"events" binding:"required,min=1,max=1000,dive"`
}

// SinkOutcome reports the per-sink result of a fan-out write.
type SinkOutcome struct {
	Sink    string `json:"sink"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordEventResponse confirms persistence and reports fan-out outcomes.
type RecordEventResponse struct {
	ID        string           `json:"id"`
	RiskLevel models.RiskLevel `json:"riskLevel"`
	Sinks     []SinkOutcome    `json:"sinks"`
}

// RecordBatchResponse summarises a batch write.
type RecordBatchResponse struct {
	Recorded int           `json:"recorded"`
	IDs      []string      `json:"ids"`
	Sinks    []SinkOutcome `json:"sinks"`
}

// CountResponse carries a bare event count.
type CountResponse struct {
	Count int64 `json:"count"`
}
