package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/audit-trail-api/internal/dto"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
)

type revealServiceMock struct {
	value string
	err   error
}

func (m *revealServiceMock) Reveal(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.value, nil
}

func TestMappingHandlerReveal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMappingHandler(&revealServiceMock{value: "alice@example.com"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/mappings/abc123", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "pseudonym", Value: "abc123"}}

	handler.Reveal(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.RevealResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "abc123", envelope.Data.Pseudonym)
	assert.Equal(t, "alice@example.com", envelope.Data.Value)
}

func TestMappingHandlerRevealExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMappingHandler(&revealServiceMock{err: appErrors.ErrMappingExpired})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/mappings/abc123", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "pseudonym", Value: "abc123"}}

	handler.Reveal(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
