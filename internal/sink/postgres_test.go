package sink

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

func newPostgresMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func postgresTestEvent() *models.AuditEvent {
	return &models.AuditEvent{
		ID:        "evt-1",
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		ActorID:   "alice",
		Action:    "document.read",
		Resource:  "doc/1",
		Status:    models.StatusSuccess,
		Metadata:  models.Metadata{},
		RiskLevel: models.RiskLow,
		Retention: models.RetentionOperational,
	}
}

func TestPostgresSinkWrite(t *testing.T) {
	db, mock, cleanup := newPostgresMock(t)
	defer cleanup()
	s := NewPostgresSink(db)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Write(context.Background(), postgresTestEvent()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkWriteBatch(t *testing.T) {
	db, mock, cleanup := newPostgresMock(t)
	defer cleanup()
	s := NewPostgresSink(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	first := postgresTestEvent()
	second := postgresTestEvent()
	second.ID = "evt-2"
	require.NoError(t, s.WriteBatch(context.Background(), []*models.AuditEvent{first, second}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkQuery(t *testing.T) {
	db, mock, cleanup := newPostgresMock(t)
	defer cleanup()
	s := NewPostgresSink(db)

	rows := sqlmock.NewRows([]string{"id", "timestamp", "actor_id", "action", "resource", "ip_address", "session_id", "status", "metadata", "correlation_id", "risk_level", "sensitive", "integrity_hash", "retention"}).
		AddRow("evt-1", time.Now(), "alice", "document.read", "doc/1", "", "", "Success", []byte(`{}`), nil, "LOW", false, nil, "OPERATIONAL")
	mock.ExpectQuery("SELECT id, timestamp, actor_id").
		WithArgs("alice").
		WillReturnRows(rows)

	filter := models.AuditEventFilter{ActorID: "alice"}
	filter.Normalize(1000)
	events, err := s.Query(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "document.read", events[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkCount(t *testing.T) {
	db, mock, cleanup := newPostgresMock(t)
	defer cleanup()
	s := NewPostgresSink(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_events`).
		WithArgs("OPERATIONAL").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := s.Count(context.Background(), models.AuditEventFilter{Retention: models.RetentionOperational})
	require.NoError(t, err)
	assert.EqualValues(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkMarkArchived(t *testing.T) {
	db, mock, cleanup := newPostgresMock(t)
	defer cleanup()
	s := NewPostgresSink(db)

	mock.ExpectExec("UPDATE audit_events SET retention").
		WithArgs(string(models.RetentionArchival), "evt-1", "evt-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, s.MarkArchived(context.Background(), []string{"evt-1", "evt-2"}))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Empty slice is a no-op without touching the database.
	require.NoError(t, s.MarkArchived(context.Background(), nil))
}

func TestPostgresSinkDeleteOlderThan(t *testing.T) {
	db, mock, cleanup := newPostgresMock(t)
	defer cleanup()
	s := NewPostgresSink(db)

	mock.ExpectExec("DELETE FROM audit_events WHERE retention").
		WithArgs(string(models.RetentionArchival), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	removed, err := s.DeleteOlderThan(context.Background(), time.Now(), models.RetentionArchival)
	require.NoError(t, err)
	assert.EqualValues(t, 7, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkCapabilities(t *testing.T) {
	s := NewPostgresSink(nil)
	caps := s.Capabilities()
	assert.True(t, caps.FastQuery)
	assert.False(t, caps.ImmutableStorage)
}
