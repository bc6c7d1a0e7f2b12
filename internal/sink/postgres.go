package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

const eventColumns = `id, timestamp, actor_id, action, resource, ip_address, session_id,
       status, metadata, correlation_id, risk_level, sensitive, integrity_hash, retention`

var sortColumns = map[string]string{
	"timestamp": "timestamp",
	"actorId":   "actor_id",
	"action":    "action",
	"riskLevel": "risk_level",
	"resource":  "resource",
}

// PostgresSink is the operational store. It is the only sink expected to
// serve interactive queries.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink wraps the database handle.
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name identifies the sink in fan-out results and health reports.
func (s *PostgresSink) Name() string { return "postgres" }

// Capabilities declares the operational profile.
func (s *PostgresSink) Capabilities() Capabilities {
	return Capabilities{FastQuery: true}
}

// Write persists one event.
func (s *PostgresSink) Write(ctx context.Context, event *models.AuditEvent) error {
	const query = `INSERT INTO audit_events
	(id, timestamp, actor_id, action, resource, ip_address, session_id, status, metadata, correlation_id, risk_level, sensitive, integrity_hash, retention)
	VALUES (:id, :timestamp, :actor_id, :action, :resource, :ip_address, :session_id, :status, :metadata, :correlation_id, :risk_level, :sensitive, :integrity_hash, :retention)`
	if _, err := s.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// WriteBatch persists events inside a single transaction.
func (s *PostgresSink) WriteBatch(ctx context.Context, events []*models.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO audit_events
	(id, timestamp, actor_id, action, resource, ip_address, session_id, status, metadata, correlation_id, risk_level, sensitive, integrity_hash, retention)
	VALUES (:id, :timestamp, :actor_id, :action, :resource, :ip_address, :session_id, :status, :metadata, :correlation_id, :risk_level, :sensitive, :integrity_hash, :retention)`
	for _, event := range events {
		if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
			return fmt.Errorf("write audit event batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit batch: %w", err)
	}
	return nil
}

// Query returns events matching the filter ordered and paginated.
func (s *PostgresSink) Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT " + eventColumns + " FROM audit_events")
	conditions, args := buildConditions(filter)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "timestamp"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY %s %s", column, direction))
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filter.MaxResults, filter.Skip))

	var events []*models.AuditEvent
	if err := s.db.SelectContext(ctx, &events, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return events, nil
}

// Count returns the number of matching events ignoring pagination.
func (s *PostgresSink) Count(ctx context.Context, filter models.AuditEventFilter) (int64, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT COUNT(*) FROM audit_events")
	conditions, args := buildConditions(filter)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var count int64
	if err := s.db.GetContext(ctx, &count, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

// MarkArchived flips rows to the archival retention category.
func (s *PostgresSink) MarkArchived(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE audit_events SET retention = ? WHERE id IN (?)`, models.RetentionArchival, ids)
	if err != nil {
		return fmt.Errorf("build archive update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("mark events archived: %w", err)
	}
	return nil
}

// DeleteOlderThan purges events of the given retention category older than
// the cutoff and returns the number of removed rows.
func (s *PostgresSink) DeleteOlderThan(ctx context.Context, cutoff time.Time, retention models.RetentionCategory) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE retention = $1 AND timestamp < $2`, retention, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count purged events: %w", err)
	}
	return affected, nil
}

func buildConditions(filter models.AuditEventFilter) ([]string, []interface{}) {
	conditions := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.From != nil {
		add("timestamp >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("timestamp < $%d", *filter.To)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.Resource != "" {
		add("resource = $%d", filter.Resource)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.SessionID != "" {
		add("session_id = $%d", filter.SessionID)
	}
	if filter.CorrelationID != "" {
		add("correlation_id = $%d", filter.CorrelationID)
	}
	if filter.RiskLevel != "" {
		add("risk_level = $%d", filter.RiskLevel)
	}
	if filter.Retention != "" {
		add("retention = $%d", filter.Retention)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(action ILIKE $%d OR resource ILIKE $%d OR actor_id ILIKE $%d)", n, n, n))
	}
	return conditions, args
}
