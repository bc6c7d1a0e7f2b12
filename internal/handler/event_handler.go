package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/audit-trail-api/internal/dto"
	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/service"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
	"github.com/noah-isme/audit-trail-api/pkg/response"
)

type auditService interface {
	Record(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, *service.FanOutResult, error)
	RecordBatch(ctx context.Context, events []*models.AuditEvent) ([]*models.AuditEvent, *service.FanOutResult, error)
	Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error)
	Count(ctx context.Context, filter models.AuditEventFilter) (int64, error)
	Statistics(ctx context.Context, start, end time.Time) (*models.AuditStatistics, error)
}

// EventHandler manages audit event HTTP endpoints.
type EventHandler struct {
	service auditService
}

// NewEventHandler constructs the handler.
func NewEventHandler(service auditService) *EventHandler {
	return &EventHandler{service: service}
}

// Actions in the system namespace describe platform-level activity and may
// only be recorded by administrators.
const systemActionPrefix = "system."

func isSystemAction(action string) bool {
	return strings.HasPrefix(action, systemActionPrefix)
}

func (h *EventHandler) allowSystemActions(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims != nil && claims.Role == models.RoleAdmin
}

func sinkOutcomes(result *service.FanOutResult) []dto.SinkOutcome {
	if result == nil {
		return nil
	}
	outcomes := make([]dto.SinkOutcome, 0, len(result.Results))
	for _, r := range result.Results {
		outcome := dto.SinkOutcome{Sink: r.Sink, Success: r.Err == nil}
		if r.Err != nil {
			outcome.Error = r.Err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Record godoc
// @Summary Record an audit event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.RecordEventRequest true "Event"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Record(c *gin.Context) {
	var req dto.RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid event payload"))
		return
	}
	if isSystemAction(req.Action) && !h.allowSystemActions(c) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "system events require the admin role"))
		return
	}

	event, result, err := h.service.Record(c.Request.Context(), req.ToModel())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.RecordEventResponse{
		ID:        event.ID,
		RiskLevel: event.RiskLevel,
		Sinks:     sinkOutcomes(result),
	})
}

// RecordBatch godoc
// @Summary Record a batch of audit events
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.RecordBatchRequest true "Events"
// @Success 201 {object} response.Envelope
// @Router /events/batch [post]
func (h *EventHandler) RecordBatch(c *gin.Context) {
	var req dto.RecordBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid batch payload"))
		return
	}

	events := make([]*models.AuditEvent, 0, len(req.Events))
	for i := range req.Events {
		if isSystemAction(req.Events[i].Action) && !h.allowSystemActions(c) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "system events require the admin role"))
			return
		}
		events = append(events, req.Events[i].ToModel())
	}

	recorded, result, err := h.service.RecordBatch(c.Request.Context(), events)
	if err != nil {
		response.Error(c, err)
		return
	}

	ids := make([]string, 0, len(recorded))
	for _, event := range recorded {
		ids = append(ids, event.ID)
	}
	response.Created(c, dto.RecordBatchResponse{
		Recorded: len(recorded),
		IDs:      ids,
		Sinks:    sinkOutcomes(result),
	})
}

// List godoc
// @Summary Query audit events
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var filter models.AuditEventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query filter"))
		return
	}

	events, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, &response.Pagination{
		Total:  len(events),
		Limit:  filter.MaxResults,
		Offset: filter.Skip,
	})
}

// Count godoc
// @Summary Count audit events
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events/count [get]
func (h *EventHandler) Count(c *gin.Context) {
	var filter models.AuditEventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query filter"))
		return
	}

	count, err := h.service.Count(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CountResponse{Count: count}, nil)
}

// Statistics godoc
// @Summary Aggregate audit statistics over a window
// @Tags Events
// @Produce json
// @Param from query string false "Window start (RFC3339), default 24h ago"
// @Param to query string false "Window end (RFC3339), default now"
// @Success 200 {object} response.Envelope
// @Router /events/statistics [get]
func (h *EventHandler) Statistics(c *gin.Context) {
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp"))
			return
		}
		start = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp"))
			return
		}
		end = parsed
	}
	if !start.Before(end) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "window start must precede its end"))
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
