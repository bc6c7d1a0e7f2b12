package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/repository"
	"github.com/noah-isme/audit-trail-api/internal/sink"
)

func TestArchiveJobSweep(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	_, _, err := f.service.Record(ctx, &models.AuditEvent{
		Timestamp: old, ActorID: "alice", Action: "read", Resource: "r", Status: models.StatusSuccess,
	})
	require.NoError(t, err)
	_, _, err = f.service.Record(ctx, &models.AuditEvent{ActorID: "bob", Action: "read", Resource: "r", Status: models.StatusSuccess})
	require.NoError(t, err)

	mappings := repository.NewMemoryMappingStore()
	require.NoError(t, mappings.Save(ctx, &models.PseudonymizationMapping{
		Pseudonym: "expired", ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	job := NewArchiveJob(f.service, []sink.Purger{f.operational}, mappings, testArchiveConfig(), zap.NewNop())
	job.Sweep(ctx)

	operational, err := f.service.Count(ctx, models.AuditEventFilter{Retention: models.RetentionOperational})
	require.NoError(t, err)
	assert.EqualValues(t, 1, operational, "aged event archived, recent one untouched")

	assert.Equal(t, 0, mappings.Len(), "expired mapping purged")
}

func TestArchiveJobDisabled(t *testing.T) {
	f := newAuditFixture(t)

	cfg := testArchiveConfig()
	cfg.Enabled = false
	job := NewArchiveJob(f.service, nil, nil, cfg, zap.NewNop())

	// Start returns immediately and Stop is safe without a running loop.
	job.Start(context.Background())
	job.Stop()
}
