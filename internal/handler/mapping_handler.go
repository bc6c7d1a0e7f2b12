package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/audit-trail-api/internal/dto"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
	"github.com/noah-isme/audit-trail-api/pkg/response"
)

type revealService interface {
	Reveal(ctx context.Context, pseudonym string) (string, error)
}

// MappingHandler exposes authorized reversal of pseudonymized values.
type MappingHandler struct {
	service revealService
}

// NewMappingHandler constructs the handler.
func NewMappingHandler(service revealService) *MappingHandler {
	return &MappingHandler{service: service}
}

// Reveal godoc
// @Summary Reveal the original value behind a pseudonym
// @Tags Protection
// @Produce json
// @Param pseudonym path string true "Pseudonym"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mappings/{pseudonym} [get]
func (h *MappingHandler) Reveal(c *gin.Context) {
	pseudonym := c.Param("pseudonym")
	if pseudonym == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pseudonym is required"))
		return
	}

	value, err := h.service.Reveal(c.Request.Context(), pseudonym)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RevealResponse{Pseudonym: pseudonym, Value: value}, nil)
}
