package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/pkg/config"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
	"github.com/noah-isme/audit-trail-api/pkg/export"
	"github.com/noah-isme/audit-trail-api/pkg/jobs"
	"github.com/noah-isme/audit-trail-api/pkg/storage"
)

const exportJobType = "export"

var exportHeaders = []string{
	"ID", "Timestamp", "Actor", "Action", "Resource", "IP Address",
	"Session", "Status", "Risk Level", "Sensitive", "Retention", "Correlation", "Metadata",
}

// ExportJobStore tracks export job state.
type ExportJobStore interface {
	Save(ctx context.Context, job *models.ExportJob) error
	Get(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, fn func(*models.ExportJob)) (*models.ExportJob, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) []string
}

type eventSource interface {
	Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error)
	Count(ctx context.Context, filter models.AuditEventFilter) (int64, error)
}

// ExportService runs asynchronous export jobs through a worker queue. Job
// state lives in the injected store; generated artifacts live on disk.
type ExportService struct {
	store     ExportJobStore
	events    eventSource
	protector eventProtector
	renderers map[models.ExportFormat]export.Renderer
	storage   *storage.LocalStorage
	metrics   *MetricsService
	validator *validator.Validate
	cfg       config.ExportConfig
	logger    *zap.Logger
	queue     *jobs.Queue
	now       func() time.Time

	cleanupCancel context.CancelFunc
}

// NewExportService wires the renderers and the worker queue.
func NewExportService(
	store ExportJobStore,
	events eventSource,
	protector eventProtector,
	fileStore *storage.LocalStorage,
	metrics *MetricsService,
	cfg config.ExportConfig,
	logger *zap.Logger,
) *ExportService {
	s := &ExportService{
		store:     store,
		events:    events,
		protector: protector,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV:   export.NewCSVRenderer(cfg.CSVMaxRows),
			models.ExportFormatJSON:  export.NewJSONRenderer(cfg.JSONMaxRows),
			models.ExportFormatExcel: export.NewExcelRenderer(cfg.ExcelMaxRows),
			models.ExportFormatPDF:   export.NewPDFRenderer(cfg.PDFMaxRows),
		},
		storage:   fileStore,
		metrics:   metrics,
		validator: validator.New(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	s.queue = jobs.NewQueue(exportJobType, s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the workers and the artifact cleanup loop.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	cleanupCtx, cancel := context.WithCancel(ctx)
	s.cleanupCancel = cancel
	go s.cleanupLoop(cleanupCtx)
}

// Stop drains the workers.
func (s *ExportService) Stop() {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.queue.Stop()
}

// Submit queues a new export job.
func (s *ExportService) Submit(ctx context.Context, filter models.AuditEventFilter, format models.ExportFormat, includeSensitive bool, createdBy string) (*models.ExportJob, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export filter")
	}

	renderer := s.renderers[format]
	filter.Normalize(renderer.MaxRows())

	job := &models.ExportJob{
		ID:               uuid.NewString(),
		Filter:           filter,
		Format:           format,
		IncludeSensitive: includeSensitive,
		Status:           models.ExportStatusQueued,
		Stage:            models.StageQueued,
		Progress:         models.StageQueued.Progress(),
		CreatedBy:        createdBy,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: exportJobType, Payload: job.ID}); err != nil {
		s.failJob(ctx, job.ID, fmt.Errorf("enqueue export: %w", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export queue unavailable")
	}
	return job, nil
}

// Get returns the job or a not-found error.
func (s *ExportService) Get(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Cancel requests cancellation. The flag is advisory: a running job only
// observes it at its next stage boundary.
func (s *ExportService) Cancel(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.store.Update(ctx, id, func(job *models.ExportJob) {
		if job.Status.Terminal() {
			return
		}
		job.Status = models.ExportStatusCancelled
		now := s.now().UTC()
		job.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status != models.ExportStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "export job already finished")
	}
	return job, nil
}

// Download opens the artifact of a completed job. Anything not completed is
// a conflict, never a partial stream.
func (s *ExportService) Download(ctx context.Context, id string) (*models.ExportJob, *os.File, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != models.ExportStatusCompleted {
		return nil, nil, appErrors.ErrExportNotReady
	}
	file, err := s.storage.Open(job.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export artifact unavailable")
	}
	return job, file, nil
}

// handle processes one queued export. Failures are recorded on the job
// rather than returned, since rendering errors are deterministic and a
// retry would fail the same way.
func (s *ExportService) handle(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("export job carries no id", zap.String("job_id", job.ID))
		return nil
	}
	s.process(ctx, id)
	return nil
}

func (s *ExportService) process(ctx context.Context, id string) {
	job, err := s.store.Get(ctx, id)
	if err != nil || job == nil {
		s.logger.Error("export job vanished before processing", zap.String("id", id), zap.Error(err))
		return
	}
	renderer := s.renderers[job.Format]

	if s.checkpoint(ctx, id, models.StageRetrieving) {
		return
	}

	count, err := s.events.Count(ctx, job.Filter)
	if err != nil {
		s.failJob(ctx, id, fmt.Errorf("count export rows: %w", err))
		return
	}
	if count > int64(renderer.MaxRows()) {
		s.failJob(ctx, id, appErrors.Clone(appErrors.ErrLimitExceeded,
			fmt.Sprintf("%d rows exceed the %s limit of %d", count, job.Format, renderer.MaxRows())))
		return
	}

	events, err := s.events.Query(ctx, job.Filter)
	if err != nil {
		s.failJob(ctx, id, fmt.Errorf("query export rows: %w", err))
		return
	}

	if s.checkpoint(ctx, id, models.StageProtecting) {
		return
	}
	if !job.IncludeSensitive {
		for i, event := range events {
			protected, err := s.protector.ProtectEvent(ctx, event)
			if err != nil {
				s.failJob(ctx, id, fmt.Errorf("protect export rows: %w", err))
				return
			}
			events[i] = protected
		}
	}

	if s.checkpoint(ctx, id, models.StageGenerating) {
		return
	}
	payload, err := renderer.Render(buildDataset(events), "Audit Events")
	if err != nil {
		s.failJob(ctx, id, err)
		return
	}

	if s.checkpoint(ctx, id, models.StageSaving) {
		return
	}
	// The artifact name embeds the completion timestamp, so it is fixed
	// here and the same instant is stored on the job; Download derives the
	// attachment name from that stored value.
	completed := s.now().UTC()
	job.CompletedAt = &completed
	filename := job.Filename()
	if _, err := s.storage.Save(filename, payload); err != nil {
		s.failJob(ctx, id, err)
		return
	}
	s.store.Update(ctx, id, func(job *models.ExportJob) { //nolint:errcheck
		if job.Status.Terminal() {
			return
		}
		job.Status = models.ExportStatusCompleted
		job.Stage = models.StageCompleted
		job.Progress = models.StageCompleted.Progress()
		job.FilePath = filename
		job.CompletedAt = &completed
	})
	s.metrics.ExportFinished(string(models.ExportStatusCompleted))
	s.logger.Info("export completed", zap.String("id", id), zap.Int("rows", len(events)))
}

// checkpoint advances the job to the next stage unless it was cancelled.
// Returns true when processing must stop.
func (s *ExportService) checkpoint(ctx context.Context, id string, stage models.ExportStage) bool {
	cancelled := false
	s.store.Update(ctx, id, func(job *models.ExportJob) { //nolint:errcheck
		if job.Status.Terminal() {
			cancelled = true
			return
		}
		job.Status = models.ExportStatusProcessing
		job.Stage = stage
		job.Progress = stage.Progress()
	})
	if cancelled {
		s.metrics.ExportFinished(string(models.ExportStatusCancelled))
		s.logger.Info("export cancelled", zap.String("id", id), zap.String("stage", string(stage)))
	}
	return cancelled
}

func (s *ExportService) failJob(ctx context.Context, id string, cause error) {
	now := s.now().UTC()
	s.store.Update(ctx, id, func(job *models.ExportJob) { //nolint:errcheck
		if job.Status.Terminal() {
			return
		}
		job.Status = models.ExportStatusFailed
		job.ErrorMessage = cause.Error()
		job.CompletedAt = &now
	})
	s.metrics.ExportFinished(string(models.ExportStatusFailed))
	s.logger.Error("export failed", zap.String("id", id), zap.Error(cause))
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.now().Add(-s.cfg.ResultTTL)
			for _, path := range s.store.DeleteOlderThan(ctx, cutoff) {
				if err := s.storage.Delete(path); err != nil {
					s.logger.Warn("failed to remove expired export artifact", zap.String("path", path), zap.Error(err))
				}
			}
		}
	}
}

func buildDataset(events []*models.AuditEvent) export.Dataset {
	data := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(events))}
	for _, event := range events {
		row := map[string]string{
			"ID":         event.ID,
			"Timestamp":  event.Timestamp.UTC().Format(time.RFC3339),
			"Actor":      event.ActorID,
			"Action":     event.Action,
			"Resource":   event.Resource,
			"IP Address": event.IPAddress,
			"Session":    event.SessionID,
			"Status":     event.Status,
			"Risk Level": string(event.RiskLevel),
			"Sensitive":  strconv.FormatBool(event.Sensitive),
			"Retention":  string(event.Retention),
		}
		if event.CorrelationID != nil {
			row["Correlation"] = *event.CorrelationID
		}
		if len(event.Metadata) > 0 {
			if raw, err := json.Marshal(event.Metadata); err == nil {
				row["Metadata"] = string(raw)
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
