package sink

import (
	"context"
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// Capabilities declares what a sink can do. Services validate required
// capabilities at construction time so misconfiguration fails on startup,
// not on the first request.
type Capabilities struct {
	// FastQuery marks sinks suitable for interactive reads.
	FastQuery bool
	// ImmutableStorage marks sinks that never overwrite stored events.
	ImmutableStorage bool
	// MaxRetention is how long the sink may hold events; zero means
	// unbounded.
	MaxRetention time.Duration
}

// Sink is one destination for audit events. Writes must be durable before
// returning; queries may be arbitrarily slow on non-FastQuery sinks.
type Sink interface {
	Name() string
	Capabilities() Capabilities
	Write(ctx context.Context, event *models.AuditEvent) error
	WriteBatch(ctx context.Context, events []*models.AuditEvent) error
	Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error)
	Count(ctx context.Context, filter models.AuditEventFilter) (int64, error)
}

// Archiver is implemented by sinks that can flip stored rows from the
// operational to the archival retention category.
type Archiver interface {
	MarkArchived(ctx context.Context, ids []string) error
}

// Purger is implemented by sinks that can drop events past retention.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, retention models.RetentionCategory) (int64, error)
}
