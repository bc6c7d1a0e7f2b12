package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/pkg/response"
)

type healthService interface {
	Health(ctx context.Context) *models.HealthReport
}

// HealthHandler exposes the sink health probe.
type HealthHandler struct {
	service healthService
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(service healthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health godoc
// @Summary Probe sink health
// @Tags Health
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.service.Health(c.Request.Context())

	status := http.StatusOK
	if report.Status == models.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	response.JSON(c, status, report, nil)
}
