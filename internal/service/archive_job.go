package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/sink"
	"github.com/noah-isme/audit-trail-api/pkg/config"
)

type mappingJanitor interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ArchiveJob periodically moves aged operational events to archival storage
// and purges data past its retention limits.
type ArchiveJob struct {
	audit    *AuditService
	purgers  []sink.Purger
	mappings mappingJanitor
	cfg      config.ArchiveConfig
	logger   *zap.Logger
	cancel   context.CancelFunc
	now      func() time.Time
}

// NewArchiveJob wires the sweep dependencies.
func NewArchiveJob(audit *AuditService, purgers []sink.Purger, mappings mappingJanitor, cfg config.ArchiveConfig, logger *zap.Logger) *ArchiveJob {
	return &ArchiveJob{
		audit:    audit,
		purgers:  purgers,
		mappings: mappings,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the sweep loop. No-op when archival is disabled.
func (j *ArchiveJob) Start(ctx context.Context) {
	if !j.cfg.Enabled {
		j.logger.Info("archival sweep disabled")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	go j.loop(ctx)
}

// Stop halts the sweep loop.
func (j *ArchiveJob) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
}

func (j *ArchiveJob) loop(ctx context.Context) {
	interval := j.cfg.SweepInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one archival pass: archive aged operational events, purge
// archival data past its retention limit, drop expired pseudonym mappings.
func (j *ArchiveJob) Sweep(ctx context.Context) {
	now := j.now().UTC()

	cutoff := now.Add(-j.cfg.OperationalRetention)
	archived, err := j.audit.Archive(ctx, cutoff)
	if err != nil {
		j.logger.Error("archival sweep failed", zap.Error(err))
	} else if archived > 0 {
		j.logger.Info("archival sweep moved events", zap.Int("count", archived))
	}

	if j.cfg.ArchivalRetention > 0 {
		purgeCutoff := now.Add(-j.cfg.ArchivalRetention)
		for _, purger := range j.purgers {
			removed, err := purger.DeleteOlderThan(ctx, purgeCutoff, models.RetentionArchival)
			if err != nil {
				j.logger.Error("retention purge failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				j.logger.Info("retention purge removed events", zap.Int64("count", removed))
			}
		}
	}

	if j.mappings != nil {
		removed, err := j.mappings.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Error("mapping cleanup failed", zap.Error(err))
		} else if removed > 0 {
			j.logger.Info("mapping cleanup removed entries", zap.Int64("count", removed))
		}
	}
}
