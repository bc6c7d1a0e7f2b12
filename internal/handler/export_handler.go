package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/audit-trail-api/internal/dto"
	"github.com/noah-isme/audit-trail-api/internal/models"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
	"github.com/noah-isme/audit-trail-api/pkg/response"
)

type exportService interface {
	Submit(ctx context.Context, filter models.AuditEventFilter, format models.ExportFormat, includeSensitive bool, createdBy string) (*models.ExportJob, error)
	Get(ctx context.Context, id string) (*models.ExportJob, error)
	Cancel(ctx context.Context, id string) (*models.ExportJob, error)
	Download(ctx context.Context, id string) (*models.ExportJob, *os.File, error)
}

// ExportHandler manages export HTTP endpoints.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Create godoc
// @Summary Submit an asynchronous export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.CreateExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	// Unprotected exports expose personal data; only administrators may
	// request them.
	if req.IncludeSensitive && claims.Role != models.RoleAdmin {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "unprotected exports require the admin role"))
		return
	}

	job, err := h.service.Submit(c.Request.Context(), req.Filter, req.Format, req.IncludeSensitive, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.NewExportJobResponse(job))
}

// Get godoc
// @Summary Poll an export job
// @Tags Exports
// @Produce json
// @Param id path string true "Export job id"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Get(c *gin.Context) {
	job, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewExportJobResponse(job), nil)
}

// Download godoc
// @Summary Download a completed export artifact
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Export job id"
// @Success 200 {file} file
// @Router /exports/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	job, file, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export artifact unavailable"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Filename()))
	c.DataFromReader(http.StatusOK, info.Size(), job.Format.ContentType(), file, nil)
}

// Cancel godoc
// @Summary Cancel a pending or running export
// @Tags Exports
// @Produce json
// @Param id path string true "Export job id"
// @Success 200 {object} response.Envelope
// @Router /exports/{id}/cancel [post]
func (h *ExportHandler) Cancel(c *gin.Context) {
	job, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewExportJobResponse(job), nil)
}
