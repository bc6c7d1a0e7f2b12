package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/audit-trail-api/internal/dto"
	"github.com/noah-isme/audit-trail-api/internal/middleware"
	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/service"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
	"github.com/noah-isme/audit-trail-api/pkg/response"
)

type auditServiceMock struct {
	recordErr error
	queryResp []*models.AuditEvent
	countResp int64
	statsResp *models.AuditStatistics
}

func (m *auditServiceMock) Record(_ context.Context, event *models.AuditEvent) (*models.AuditEvent, *service.FanOutResult, error) {
	if m.recordErr != nil {
		return nil, nil, m.recordErr
	}
	event.ID = "evt-1"
	event.RiskLevel = models.AssessRisk(event.Action, event.Status)
	result := &service.FanOutResult{Results: []service.SinkResult{{Sink: "postgres"}, {Sink: "blob"}}}
	return event, result, nil
}

func (m *auditServiceMock) RecordBatch(_ context.Context, events []*models.AuditEvent) ([]*models.AuditEvent, *service.FanOutResult, error) {
	if m.recordErr != nil {
		return nil, nil, m.recordErr
	}
	for i, event := range events {
		event.ID = string(rune('a' + i))
	}
	return events, &service.FanOutResult{Results: []service.SinkResult{{Sink: "postgres"}}}, nil
}

func (m *auditServiceMock) Query(_ context.Context, _ models.AuditEventFilter) ([]*models.AuditEvent, error) {
	return m.queryResp, nil
}

func (m *auditServiceMock) Count(_ context.Context, _ models.AuditEventFilter) (int64, error) {
	return m.countResp, nil
}

func (m *auditServiceMock) Statistics(_ context.Context, start, end time.Time) (*models.AuditStatistics, error) {
	return m.statsResp, nil
}

func TestEventHandlerRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(dto.RecordEventRequest{
		ActorID: "alice", Action: "document.delete", Resource: "doc/1", Status: models.StatusSuccess,
	})
	req, _ := http.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Record(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data dto.RecordEventResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "evt-1", envelope.Data.ID)
	assert.Equal(t, models.RiskHigh, envelope.Data.RiskLevel)
	assert.Len(t, envelope.Data.Sinks, 2)
	assert.True(t, envelope.Data.Sinks[0].Success)
}

func TestEventHandlerRecordInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(`{"action":"read"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Record(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerRecordSystemEventRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})

	body, _ := json.Marshal(dto.RecordEventRequest{
		ActorID: "scheduler", Action: "system.config.update", Resource: "config", Status: models.StatusSuccess,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "officer-1", Role: models.RoleComplianceOfficer})

	handler.Record(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req, _ = http.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Record(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestEventHandlerRecordBatchSystemEventRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(dto.RecordBatchRequest{Events: []dto.RecordEventRequest{
		{ActorID: "alice", Action: "document.read", Resource: "a", Status: models.StatusSuccess},
		{ActorID: "scheduler", Action: "system.maintenance", Resource: "b", Status: models.StatusSuccess},
	}})
	req, _ := http.NewRequest(http.MethodPost, "/events/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "auditor-1", Role: models.RoleAuditor})

	handler.RecordBatch(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventHandlerRecordSinkFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{recordErr: appErrors.Clone(appErrors.ErrInternal, "one or more sinks rejected the event")})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(dto.RecordEventRequest{ActorID: "alice", Action: "read", Resource: "r", Status: models.StatusSuccess})
	req, _ := http.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Record(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestEventHandlerRecordBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(dto.RecordBatchRequest{Events: []dto.RecordEventRequest{
		{ActorID: "alice", Action: "read", Resource: "a", Status: models.StatusSuccess},
		{ActorID: "bob", Action: "update", Resource: "b", Status: models.StatusFailure},
	}})
	req, _ := http.NewRequest(http.MethodPost, "/events/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.RecordBatch(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data dto.RecordBatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Recorded)
	assert.Len(t, envelope.Data.IDs, 2)
}

func TestEventHandlerRecordBatchEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(http.MethodPost, "/events/batch", bytes.NewReader([]byte(`{"events":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.RecordBatch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &auditServiceMock{queryResp: []*models.AuditEvent{{ID: "evt-1", Action: "read"}}}
	handler := NewEventHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(http.MethodGet, "/events?actorId=alice&maxResults=10", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.AuditEvent  `json:"data"`
		Pagination *response.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.Total)
}

func TestEventHandlerCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{countResp: 42})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(http.MethodGet, "/events/count", nil)
	c.Request = req

	handler.Count(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.CountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.EqualValues(t, 42, envelope.Data.Count)
}

func TestEventHandlerStatisticsInvalidWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(http.MethodGet, "/events/statistics?from=2026-05-02T00:00:00Z&to=2026-05-01T00:00:00Z", nil)
	c.Request = req

	handler.Statistics(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerStatistics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(&auditServiceMock{statsResp: &models.AuditStatistics{TotalEvents: 3}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(http.MethodGet, "/events/statistics", nil)
	c.Request = req

	handler.Statistics(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.AuditStatistics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.TotalEvents)
}
