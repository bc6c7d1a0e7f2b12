package models

import (
	"fmt"
	"time"
)

// ExportFormat enumerates supported export renderings.
type ExportFormat string

const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatJSON  ExportFormat = "json"
	ExportFormatExcel ExportFormat = "xlsx"
	ExportFormatPDF   ExportFormat = "pdf"
)

// Extension returns the file extension including the leading dot.
func (f ExportFormat) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when streaming the artifact.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatJSON:
		return "application/json"
	case ExportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Valid reports whether the format is one of the supported renderings.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatCSV, ExportFormatJSON, ExportFormatExcel, ExportFormatPDF:
		return true
	default:
		return false
	}
}

// ExportStatus captures the export job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusCompleted  ExportStatus = "COMPLETED"
	ExportStatusFailed     ExportStatus = "FAILED"
	ExportStatusCancelled  ExportStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transition.
func (s ExportStatus) Terminal() bool {
	switch s {
	case ExportStatusCompleted, ExportStatusFailed, ExportStatusCancelled:
		return true
	default:
		return false
	}
}

// ExportStage labels the processing checkpoint a job has reached. Each stage
// maps to a fixed progress percentage polled by clients.
type ExportStage string

const (
	StageQueued     ExportStage = "Queued"
	StageRetrieving ExportStage = "Retrieving"
	StageProtecting ExportStage = "Protecting"
	StageGenerating ExportStage = "Generating"
	StageSaving     ExportStage = "Saving"
	StageCompleted  ExportStage = "Completed"
)

// Progress returns the percentage associated with the stage.
func (s ExportStage) Progress() int {
	switch s {
	case StageRetrieving:
		return 20
	case StageProtecting:
		return 40
	case StageGenerating:
		return 60
	case StageSaving:
		return 80
	case StageCompleted:
		return 100
	default:
		return 0
	}
}

// ExportJob tracks one asynchronous export from submission to artifact.
type ExportJob struct {
	ID               string           `json:"id"`
	Filter           AuditEventFilter `json:"filter"`
	Format           ExportFormat     `json:"format"`
	IncludeSensitive bool             `json:"includeSensitive"`
	Status           ExportStatus     `json:"status"`
	Stage            ExportStage      `json:"stage"`
	Progress         int              `json:"progress"`
	FilePath         string           `json:"-"`
	ErrorMessage     string           `json:"error,omitempty"`
	CreatedBy        string           `json:"createdBy"`
	CreatedAt        time.Time        `json:"createdAt"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
}

// Filename derives the artifact name from the job id and completion time.
func (j *ExportJob) Filename() string {
	stamp := j.CreatedAt
	if j.CompletedAt != nil {
		stamp = *j.CompletedAt
	}
	return fmt.Sprintf("audit_export_%s_%s%s", j.ID, stamp.UTC().Format("20060102150405"), j.Format.Extension())
}
