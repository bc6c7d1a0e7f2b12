package sink

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// MemorySink keeps events in process memory. Used in unit tests and
// single-process development setups.
type MemorySink struct {
	mu           sync.RWMutex
	name         string
	events       map[string]*models.AuditEvent
	capabilities Capabilities

	// FailWrites makes every write return an error; test hook.
	FailWrites error
	// WriteDelay slows probes down; test hook.
	WriteDelay time.Duration
}

// NewMemorySink creates an empty sink advertising the given capabilities.
func NewMemorySink(capabilities Capabilities) *MemorySink {
	return &MemorySink{
		name:         "memory",
		events:       make(map[string]*models.AuditEvent),
		capabilities: capabilities,
	}
}

// WithName overrides the sink name; useful when running several memory
// sinks side by side.
func (s *MemorySink) WithName(name string) *MemorySink {
	s.name = name
	return s
}

// Name identifies the sink in fan-out results and health reports.
func (s *MemorySink) Name() string { return s.name }

// Capabilities returns the configured profile.
func (s *MemorySink) Capabilities() Capabilities { return s.capabilities }

// Write stores a copy of the event.
func (s *MemorySink) Write(ctx context.Context, event *models.AuditEvent) error {
	if s.WriteDelay > 0 {
		select {
		case <-time.After(s.WriteDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event.Clone()
	return nil
}

// WriteBatch stores copies of all events.
func (s *MemorySink) WriteBatch(ctx context.Context, events []*models.AuditEvent) error {
	for _, event := range events {
		if err := s.Write(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Query filters, sorts and paginates the stored events.
func (s *MemorySink) Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error) {
	if s.WriteDelay > 0 {
		select {
		case <-time.After(s.WriteDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.RLock()
	matched := make([]*models.AuditEvent, 0, len(s.events))
	for _, event := range s.events {
		if matches(event, filter) {
			matched = append(matched, event.Clone())
		}
	}
	s.mu.RUnlock()
	return sortAndPage(matched, filter), nil
}

// Count tallies matching events ignoring pagination.
func (s *MemorySink) Count(ctx context.Context, filter models.AuditEventFilter) (int64, error) {
	if s.FailWrites != nil {
		return 0, s.FailWrites
	}
	if s.WriteDelay > 0 {
		select {
		case <-time.After(s.WriteDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, event := range s.events {
		if matches(event, filter) {
			count++
		}
	}
	return count, nil
}

// MarkArchived flips stored events to the archival retention category.
func (s *MemorySink) MarkArchived(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if event, ok := s.events[id]; ok {
			event.Retention = models.RetentionArchival
		}
	}
	return nil
}

// DeleteOlderThan purges stored events older than the cutoff.
func (s *MemorySink) DeleteOlderThan(_ context.Context, cutoff time.Time, retention models.RetentionCategory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, event := range s.events {
		if retention != "" && event.Retention != retention {
			continue
		}
		if event.Timestamp.Before(cutoff) {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored events.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
