package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/protection"
	"github.com/noah-isme/audit-trail-api/internal/repository"
	"github.com/noah-isme/audit-trail-api/internal/sink"
	"github.com/noah-isme/audit-trail-api/pkg/config"
)

func testQueryConfig() config.QueryConfig {
	return config.QueryConfig{
		CacheEnabled:      false,
		MaxResults:        1000,
		HealthBudget:      5 * time.Second,
		DegradedThreshold: time.Second,
	}
}

func testArchiveConfig() config.ArchiveConfig {
	return config.ArchiveConfig{Enabled: true, BatchSize: 2, OperationalRetention: 30 * 24 * time.Hour}
}

func testPolicy(t *testing.T) *protection.Policy {
	t.Helper()
	return protection.NewPolicy(config.ProtectionConfig{
		Enabled:      true,
		Salt:         "test_salt",
		MappingTTL:   time.Hour,
		AlwaysFields: []string{"actor_id"},
	}, repository.NewMemoryMappingStore(), zap.NewNop())
}

type auditFixture struct {
	service     *AuditService
	operational *sink.MemorySink
	archival    *sink.MemorySink
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()
	operational := sink.NewMemorySink(sink.Capabilities{FastQuery: true}).WithName("operational")
	archival := sink.NewMemorySink(sink.Capabilities{ImmutableStorage: true}).WithName("archival")

	service, err := NewAuditService(
		[]sink.Sink{operational, archival},
		testPolicy(t),
		protection.NewIntegrityHasher("sha256"),
		NewCacheService(nil, zap.NewNop()),
		NewMetricsService(),
		testQueryConfig(),
		testArchiveConfig(),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return &auditFixture{service: service, operational: operational, archival: archival}
}

func TestNewAuditServiceCapabilityValidation(t *testing.T) {
	policy := testPolicy(t)
	hasher := protection.NewIntegrityHasher("sha256")
	cache := NewCacheService(nil, zap.NewNop())
	metrics := NewMetricsService()

	_, err := NewAuditService(nil, policy, hasher, cache, metrics, testQueryConfig(), testArchiveConfig(), zap.NewNop())
	assert.Error(t, err, "no sinks")

	slowOnly := sink.NewMemorySink(sink.Capabilities{ImmutableStorage: true})
	_, err = NewAuditService([]sink.Sink{slowOnly}, policy, hasher, cache, metrics, testQueryConfig(), testArchiveConfig(), zap.NewNop())
	assert.Error(t, err, "no fast-query sink")

	fastOnly := sink.NewMemorySink(sink.Capabilities{FastQuery: true})
	_, err = NewAuditService([]sink.Sink{fastOnly}, policy, hasher, cache, metrics, testQueryConfig(), testArchiveConfig(), zap.NewNop())
	assert.Error(t, err, "archival enabled without immutable sink")

	disabled := testArchiveConfig()
	disabled.Enabled = false
	_, err = NewAuditService([]sink.Sink{fastOnly}, policy, hasher, cache, metrics, testQueryConfig(), disabled, zap.NewNop())
	assert.NoError(t, err, "archival disabled needs no immutable sink")
}

func TestRecordFansOutToAllSinks(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	event := &models.AuditEvent{ActorID: "alice", Action: "document.read", Resource: "doc/1", Status: models.StatusSuccess}
	recorded, result, err := f.service.Record(ctx, event)
	require.NoError(t, err)
	require.NotNil(t, recorded)

	assert.NotEmpty(t, recorded.ID)
	assert.False(t, recorded.Timestamp.IsZero())
	assert.Equal(t, models.RiskLow, recorded.RiskLevel)
	require.NotNil(t, recorded.IntegrityHash)
	assert.NotEqual(t, "alice", recorded.ActorID, "actor pseudonymized")
	assert.True(t, recorded.Sensitive)

	require.Len(t, result.Results, 2)
	assert.False(t, result.Failed())
	assert.Equal(t, 1, f.operational.Len())
	assert.Equal(t, 1, f.archival.Len())
}

func TestRecordReportsFailedSink(t *testing.T) {
	f := newAuditFixture(t)
	f.archival.FailWrites = fmt.Errorf("disk full")
	ctx := context.Background()

	event := &models.AuditEvent{ActorID: "alice", Action: "document.read", Resource: "doc/1", Status: models.StatusSuccess}
	_, result, err := f.service.Record(ctx, event)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Failed())
	// The healthy sink was still written despite the failure.
	assert.Equal(t, 1, f.operational.Len())

	var failed, succeeded int
	for _, r := range result.Results {
		if r.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)
}

func TestRecordAssignsRiskLevels(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	cases := map[string]models.RiskLevel{
		"user.delete":     models.RiskHigh,
		"security.update": models.RiskCritical,
		"data.export":     models.RiskMedium,
		"document.read":   models.RiskLow,
	}
	for action, expected := range cases {
		recorded, _, err := f.service.Record(ctx, &models.AuditEvent{ActorID: "alice", Action: action, Resource: "r", Status: models.StatusSuccess})
		require.NoError(t, err)
		assert.Equal(t, expected, recorded.RiskLevel, action)
	}
}

func TestRecordBatch(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	events := []*models.AuditEvent{
		{ActorID: "alice", Action: "read", Resource: "a", Status: models.StatusSuccess},
		{ActorID: "bob", Action: "update", Resource: "b", Status: models.StatusSuccess},
	}
	recorded, result, err := f.service.RecordBatch(ctx, events)
	require.NoError(t, err)
	assert.Len(t, recorded, 2)
	assert.False(t, result.Failed())
	assert.Equal(t, 2, f.operational.Len())
	assert.Equal(t, 2, f.archival.Len())
}

func TestQueryRoutesToFastSink(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	_, _, err := f.service.Record(ctx, &models.AuditEvent{ActorID: "alice", Action: "read", Resource: "a", Status: models.StatusSuccess})
	require.NoError(t, err)

	events, err := f.service.Query(ctx, models.AuditEventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	count, err := f.service.Count(ctx, models.AuditEventFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestStatisticsAggregation(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, spec := range []struct {
		action string
		status string
	}{
		{"document.read", models.StatusSuccess},
		{"document.read", models.StatusSuccess},
		{"user.delete", models.StatusFailure},
	} {
		_, _, err := f.service.Record(ctx, &models.AuditEvent{ActorID: "alice", Action: spec.action, Resource: "r", Status: spec.status})
		require.NoError(t, err)
	}

	stats, err := f.service.Statistics(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 2, stats.ByAction["document.read"])
	assert.Equal(t, 1, stats.ByStatus[models.StatusFailure])
	assert.Equal(t, 1, stats.ByRiskLevel[string(models.RiskHigh)])
	assert.Equal(t, 3, stats.SensitiveHits, "actor pseudonymization marks events sensitive")
}

func TestArchiveMovesAgedEvents(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		_, _, err := f.service.Record(ctx, &models.AuditEvent{
			Timestamp: old.Add(time.Duration(i) * time.Minute),
			ActorID:   "alice", Action: "read", Resource: "r", Status: models.StatusSuccess,
		})
		require.NoError(t, err)
	}
	_, _, err := f.service.Record(ctx, &models.AuditEvent{ActorID: "alice", Action: "read", Resource: "r", Status: models.StatusSuccess})
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	archived, err := f.service.Archive(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, archived, "batch size 2 forces two passes")

	remaining, err := f.service.Count(ctx, models.AuditEventFilter{Retention: models.RetentionOperational})
	require.NoError(t, err)
	assert.EqualValues(t, 1, remaining)

	// Re-running is idempotent: nothing operational is old enough anymore.
	again, err := f.service.Archive(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestHealthAggregatesWorstStatus(t *testing.T) {
	f := newAuditFixture(t)

	report := f.service.Health(context.Background())
	assert.Equal(t, models.HealthHealthy, report.Status)
	require.Len(t, report.Sinks, 2)

	f.archival.FailWrites = fmt.Errorf("connection refused")
	report = f.service.Health(context.Background())
	assert.Equal(t, models.HealthUnhealthy, report.Status)

	statuses := map[string]models.HealthStatus{}
	for _, s := range report.Sinks {
		statuses[s.Sink] = s.Status
	}
	assert.Equal(t, models.HealthHealthy, statuses["operational"])
	assert.Equal(t, models.HealthUnhealthy, statuses["archival"])
}

func TestHealthDegradedOnSlowProbe(t *testing.T) {
	operational := sink.NewMemorySink(sink.Capabilities{FastQuery: true}).WithName("operational")
	operational.WriteDelay = 30 * time.Millisecond

	cfg := testQueryConfig()
	cfg.DegradedThreshold = 10 * time.Millisecond

	disabled := testArchiveConfig()
	disabled.Enabled = false
	service, err := NewAuditService([]sink.Sink{operational}, testPolicy(t), protection.NewIntegrityHasher("sha256"),
		NewCacheService(nil, zap.NewNop()), NewMetricsService(), cfg, disabled, zap.NewNop())
	require.NoError(t, err)

	report := service.Health(context.Background())
	assert.Equal(t, models.HealthDegraded, report.Status)
}
