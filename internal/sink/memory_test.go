package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

func TestMemorySinkWriteIsolatesCaller(t *testing.T) {
	s := NewMemorySink(Capabilities{FastQuery: true})
	ctx := context.Background()

	event := &models.AuditEvent{ID: "evt-1", Timestamp: time.Now(), ActorID: "alice", Action: "read", Status: models.StatusSuccess}
	require.NoError(t, s.Write(ctx, event))

	// Mutating the original must not affect the stored copy.
	event.ActorID = "mallory"

	filter := models.AuditEventFilter{}
	filter.Normalize(1000)
	events, err := s.Query(ctx, filter)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].ActorID)
}

func TestMemorySinkQueryFilterAndSort(t *testing.T) {
	s := NewMemorySink(Capabilities{FastQuery: true})
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.WriteBatch(ctx, []*models.AuditEvent{
		{ID: "evt-1", Timestamp: base, ActorID: "alice", Action: "read", Status: models.StatusSuccess},
		{ID: "evt-2", Timestamp: base.Add(time.Minute), ActorID: "bob", Action: "delete", Status: models.StatusSuccess},
		{ID: "evt-3", Timestamp: base.Add(2 * time.Minute), ActorID: "alice", Action: "update", Status: models.StatusFailure},
	}))

	filter := models.AuditEventFilter{ActorID: "alice"}
	filter.Normalize(1000)
	events, err := s.Query(ctx, filter)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-3", events[0].ID, "newest first by default")

	count, err := s.Count(ctx, models.AuditEventFilter{Status: models.StatusFailure})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMemorySinkPagination(t *testing.T) {
	s := NewMemorySink(Capabilities{FastQuery: true})
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"evt-1", "evt-2", "evt-3"} {
		require.NoError(t, s.Write(ctx, &models.AuditEvent{ID: id, Timestamp: base.Add(time.Duration(i) * time.Minute), Action: "read", Status: models.StatusSuccess}))
	}

	events, err := s.Query(ctx, models.AuditEventFilter{MaxResults: 1, Skip: 1, SortAsc: true, SortBy: "timestamp"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-2", events[0].ID)
}

func TestMemorySinkMarkArchivedAndPurge(t *testing.T) {
	s := NewMemorySink(Capabilities{FastQuery: true})
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Write(ctx, &models.AuditEvent{ID: "evt-1", Timestamp: base, Action: "read", Status: models.StatusSuccess, Retention: models.RetentionOperational}))
	require.NoError(t, s.MarkArchived(ctx, []string{"evt-1"}))

	count, err := s.Count(ctx, models.AuditEventFilter{Retention: models.RetentionArchival})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	removed, err := s.DeleteOlderThan(ctx, base.Add(time.Hour), models.RetentionArchival)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.Equal(t, 0, s.Len())
}
