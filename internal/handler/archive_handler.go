package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/audit-trail-api/internal/dto"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
	"github.com/noah-isme/audit-trail-api/pkg/response"
)

type archiveService interface {
	Archive(ctx context.Context, cutoff time.Time) (int, error)
}

// ArchiveHandler exposes the manual archival trigger.
type ArchiveHandler struct {
	service   archiveService
	retention time.Duration
}

// NewArchiveHandler constructs the handler. retention is the default
// operational retention applied when the request names no cutoff.
func NewArchiveHandler(service archiveService, retention time.Duration) *ArchiveHandler {
	return &ArchiveHandler{service: service, retention: retention}
}

// Archive godoc
// @Summary Archive operational events older than a cutoff
// @Tags Archive
// @Accept json
// @Produce json
// @Param payload body dto.ArchiveRequest false "Archive request"
// @Success 200 {object} response.Envelope
// @Router /archive [post]
func (h *ArchiveHandler) Archive(c *gin.Context) {
	var req dto.ArchiveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid archive payload"))
			return
		}
	}

	cutoff := time.Now().UTC().Add(-h.retention)
	if req.Before != nil {
		cutoff = req.Before.UTC()
	}
	if cutoff.After(time.Now().UTC()) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cutoff must not lie in the future"))
		return
	}

	archived, err := h.service.Archive(c.Request.Context(), cutoff)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ArchiveResponse{Archived: archived, Cutoff: cutoff}, nil)
}
