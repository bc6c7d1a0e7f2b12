package dto

import (
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// CreateExportRequest submits an asynchronous export.
type CreateExportRequest struct {
	Filter           models.AuditEventFilter `json:"filter"`
	Format           models.ExportFormat     `json:"format" binding:"required,oneof=csv json xlsx pdf"`
	IncludeSensitive bool                    `json:"includeSensitive"`
}

// ExportJobResponse is the polled view of an export job.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Format      models.ExportFormat `json:"format"`
	Status      models.ExportStatus `json:"status"`
	Stage       models.ExportStage  `json:"stage"`
	Progress    int                 `json:"progress"`
	Error       string              `json:"error,omitempty"`
	CreatedBy   string              `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

// NewExportJobResponse maps a job to its API shape.
func NewExportJobResponse(job *models.ExportJob) ExportJobResponse {
	return ExportJobResponse{
		ID:          job.ID,
		Format:      job.Format,
		Status:      job.Status,
		Stage:       job.Stage,
		Progress:    job.Progress,
		Error:       job.ErrorMessage,
		CreatedBy:   job.CreatedBy,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}
