package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/protection"
	"github.com/noah-isme/audit-trail-api/internal/sink"
	"github.com/noah-isme/audit-trail-api/pkg/config"
	appErrors "github.com/noah-isme/audit-trail-api/pkg/errors"
)

// SinkResult is the outcome of one sink write during fan-out.
type SinkResult struct {
	Sink string
	Err  error
}

// FanOutResult collects per-sink outcomes for one write. Every sink is
// attempted even when an earlier one fails; there is no rollback.
type FanOutResult struct {
	Results []SinkResult
}

// Failed reports whether any sink write failed.
func (r *FanOutResult) Failed() bool {
	for _, result := range r.Results {
		if result.Err != nil {
			return true
		}
	}
	return false
}

type eventProtector interface {
	ProtectEvent(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error)
}

// AuditService orchestrates protection, fan-out, queries, archival and
// health across the configured sinks.
type AuditService struct {
	sinks     []sink.Sink
	fast      sink.Sink
	archival  sink.Sink
	protector eventProtector
	hasher    *protection.IntegrityHasher
	cache     *CacheService
	metrics   *MetricsService
	queryCfg  config.QueryConfig
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditService validates sink capabilities up front: queries need a
// fast-query sink, archival needs an immutable sink plus an operational sink
// that can flip retention categories. Missing capabilities fail construction.
func NewAuditService(
	sinks []sink.Sink,
	protector eventProtector,
	hasher *protection.IntegrityHasher,
	cache *CacheService,
	metrics *MetricsService,
	queryCfg config.QueryConfig,
	archiveCfg config.ArchiveConfig,
	logger *zap.Logger,
) (*AuditService, error) {
	if len(sinks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrSinkCapability, "at least one sink is required")
	}

	s := &AuditService{
		sinks:     sinks,
		protector: protector,
		hasher:    hasher,
		cache:     cache,
		metrics:   metrics,
		queryCfg:  queryCfg,
		batchSize: archiveCfg.BatchSize,
		logger:    logger,
		now:       time.Now,
	}

	for _, candidate := range sinks {
		caps := candidate.Capabilities()
		if caps.FastQuery && s.fast == nil {
			s.fast = candidate
		}
		if caps.ImmutableStorage && s.archival == nil {
			s.archival = candidate
		}
	}

	if s.fast == nil {
		return nil, appErrors.Clone(appErrors.ErrSinkCapability, "no sink provides fast queries")
	}
	if archiveCfg.Enabled {
		if s.archival == nil {
			return nil, appErrors.Clone(appErrors.ErrSinkCapability, "archival enabled but no immutable sink is configured")
		}
		if _, ok := s.fast.(sink.Archiver); !ok {
			return nil, appErrors.Clone(appErrors.ErrSinkCapability, "archival enabled but the operational sink cannot mark events archived")
		}
	}
	return s, nil
}

// prepare assigns identity, risk and integrity fields, then applies the
// protection policy. Returns the event that should be persisted.
func (s *AuditService) prepare(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if event.RiskLevel == "" {
		event.RiskLevel = models.AssessRisk(event.Action, event.Status)
	}
	if event.Retention == "" {
		event.Retention = models.RetentionOperational
	}

	protected, err := s.protector.ProtectEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("protect event: %w", err)
	}

	digest, err := s.hasher.Hash(protected)
	if err != nil {
		return nil, err
	}
	protected.IntegrityHash = &digest
	return protected, nil
}

// Record persists one event to every sink in parallel. The returned result
// always lists every sink; the error is non-nil when any write failed.
func (s *AuditService) Record(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, *FanOutResult, error) {
	protected, err := s.prepare(ctx, event)
	if err != nil {
		return nil, nil, err
	}

	result := s.fanOut(ctx, func(target sink.Sink) error {
		return target.Write(ctx, protected)
	})

	s.metrics.EventRecorded(string(protected.RiskLevel))
	if result.Failed() {
		return protected, result, appErrors.Clone(appErrors.ErrInternal, "one or more sinks rejected the event")
	}
	return protected, result, nil
}

// RecordBatch persists events to every sink in parallel batch writes.
func (s *AuditService) RecordBatch(ctx context.Context, events []*models.AuditEvent) ([]*models.AuditEvent, *FanOutResult, error) {
	protected := make([]*models.AuditEvent, 0, len(events))
	for _, event := range events {
		p, err := s.prepare(ctx, event)
		if err != nil {
			return nil, nil, err
		}
		protected = append(protected, p)
	}

	result := s.fanOut(ctx, func(target sink.Sink) error {
		return target.WriteBatch(ctx, protected)
	})

	for _, event := range protected {
		s.metrics.EventRecorded(string(event.RiskLevel))
	}
	if result.Failed() {
		return protected, result, appErrors.Clone(appErrors.ErrInternal, "one or more sinks rejected the batch")
	}
	return protected, result, nil
}

func (s *AuditService) fanOut(ctx context.Context, write func(sink.Sink) error) *FanOutResult {
	result := &FanOutResult{Results: make([]SinkResult, len(s.sinks))}
	var wg sync.WaitGroup
	for i, target := range s.sinks {
		wg.Add(1)
		go func(i int, target sink.Sink) {
			defer wg.Done()
			err := write(target)
			result.Results[i] = SinkResult{Sink: target.Name(), Err: err}
			if err != nil {
				s.metrics.SinkFailure(target.Name())
				s.logger.Error("sink write failed", zap.String("sink", target.Name()), zap.Error(err))
			}
		}(i, target)
	}
	wg.Wait()
	return result
}

// Query reads matching events from the fast-query sink through the cache.
func (s *AuditService) Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error) {
	filter.Normalize(s.queryCfg.MaxResults)

	key := s.cache.Key("audit:query", filter)
	if s.queryCfg.CacheEnabled {
		var cached []*models.AuditEvent
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.CacheHit()
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("query cache read failed", zap.Error(err))
		}
		s.metrics.CacheMiss()
	}

	events, err := s.fast.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.queryCfg.CacheEnabled {
		if err := s.cache.Set(ctx, key, events, s.queryCfg.CacheTTL); err != nil {
			s.logger.Warn("query cache write failed", zap.Error(err))
		}
	}
	return events, nil
}

// Count counts matching events on the fast-query sink through the cache.
func (s *AuditService) Count(ctx context.Context, filter models.AuditEventFilter) (int64, error) {
	filter.Normalize(s.queryCfg.MaxResults)

	key := s.cache.Key("audit:count", filter)
	if s.queryCfg.CacheEnabled {
		var cached int64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.CacheHit()
			return cached, nil
		}
		s.metrics.CacheMiss()
	}

	count, err := s.fast.Count(ctx, filter)
	if err != nil {
		return 0, err
	}
	if s.queryCfg.CacheEnabled {
		if err := s.cache.Set(ctx, key, count, s.queryCfg.CacheTTL); err != nil {
			s.logger.Warn("count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// Statistics aggregates events in the window in memory. The aggregation is
// bounded by the query MaxResults cap, which is acceptable for dashboards.
func (s *AuditService) Statistics(ctx context.Context, start, end time.Time) (*models.AuditStatistics, error) {
	filter := models.AuditEventFilter{From: &start, To: &end}
	filter.Normalize(s.queryCfg.MaxResults)

	key := s.cache.Key("audit:stats", filter)
	if s.queryCfg.CacheEnabled {
		var cached models.AuditStatistics
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.CacheHit()
			return &cached, nil
		}
		s.metrics.CacheMiss()
	}

	events, err := s.fast.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &models.AuditStatistics{
		PeriodStart: start,
		PeriodEnd:   end,
		TotalEvents: len(events),
		ByAction:    make(map[string]int),
		ByStatus:    make(map[string]int),
		ByRiskLevel: make(map[string]int),
		ByActor:     make(map[string]int),
	}
	for _, event := range events {
		stats.ByAction[event.Action]++
		stats.ByStatus[event.Status]++
		stats.ByRiskLevel[string(event.RiskLevel)]++
		stats.ByActor[event.ActorID]++
		if event.Sensitive {
			stats.SensitiveHits++
		}
	}

	if s.queryCfg.CacheEnabled {
		if err := s.cache.Set(ctx, key, stats, s.queryCfg.CacheTTL); err != nil {
			s.logger.Warn("statistics cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Archive moves operational events older than the cutoff to the archival
// sink in batches and flips their retention category. Only OPERATIONAL rows
// are ever selected, so re-running with the same cutoff is idempotent.
func (s *AuditService) Archive(ctx context.Context, cutoff time.Time) (int, error) {
	if s.archival == nil {
		return 0, appErrors.Clone(appErrors.ErrSinkCapability, "no archival sink is configured")
	}
	archiver, ok := s.fast.(sink.Archiver)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrSinkCapability, "operational sink cannot mark events archived")
	}

	batchSize := s.batchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		filter := models.AuditEventFilter{
			To:         &cutoff,
			Retention:  models.RetentionOperational,
			MaxResults: batchSize,
			SortBy:     "timestamp",
			SortAsc:    true,
		}
		events, err := s.fast.Query(ctx, filter)
		if err != nil {
			return total, fmt.Errorf("select events for archival: %w", err)
		}
		if len(events) == 0 {
			break
		}

		ids := make([]string, 0, len(events))
		for _, event := range events {
			event.Retention = models.RetentionArchival
			ids = append(ids, event.ID)
		}
		if err := s.archival.WriteBatch(ctx, events); err != nil {
			return total, fmt.Errorf("write archival batch: %w", err)
		}
		if err := archiver.MarkArchived(ctx, ids); err != nil {
			return total, fmt.Errorf("mark events archived: %w", err)
		}

		total += len(events)
		s.metrics.EventsArchived(len(events))
		s.logger.Info("archived audit events", zap.Int("count", len(events)), zap.Time("cutoff", cutoff))

		if len(events) < batchSize {
			break
		}
	}
	return total, nil
}

// Health probes every sink with a minimal count under a shared time budget.
// A probe slower than the degraded threshold reports Degraded; an error
// reports Unhealthy. The aggregate is the worst sink status.
func (s *AuditService) Health(ctx context.Context) *models.HealthReport {
	budget := s.queryCfg.HealthBudget
	if budget <= 0 {
		budget = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	report := &models.HealthReport{
		Status:    models.HealthHealthy,
		Sinks:     make([]models.SinkHealth, len(s.sinks)),
		CheckedAt: s.now().UTC(),
	}

	var wg sync.WaitGroup
	for i, target := range s.sinks {
		wg.Add(1)
		go func(i int, target sink.Sink) {
			defer wg.Done()
			started := time.Now()
			_, err := target.Count(ctx, models.AuditEventFilter{MaxResults: 1})
			elapsed := time.Since(started)

			health := models.SinkHealth{Sink: target.Name(), Status: models.HealthHealthy, ResponseTime: elapsed}
			switch {
			case err != nil:
				health.Status = models.HealthUnhealthy
				health.Error = err.Error()
			case s.queryCfg.DegradedThreshold > 0 && elapsed > s.queryCfg.DegradedThreshold:
				health.Status = models.HealthDegraded
			}
			report.Sinks[i] = health
		}(i, target)
	}
	wg.Wait()

	for _, health := range report.Sinks {
		report.Status = models.Worst(report.Status, health.Status)
	}
	return report
}
