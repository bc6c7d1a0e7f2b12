package sink

import (
	"sort"
	"strings"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// matches applies the filter predicates to one event in memory. Used by the
// sinks that cannot push filtering into a query engine.
func matches(event *models.AuditEvent, filter models.AuditEventFilter) bool {
	if filter.From != nil && event.Timestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !event.Timestamp.Before(*filter.To) {
		return false
	}
	if filter.ActorID != "" && event.ActorID != filter.ActorID {
		return false
	}
	if filter.Action != "" && event.Action != filter.Action {
		return false
	}
	if filter.Resource != "" && event.Resource != filter.Resource {
		return false
	}
	if filter.Status != "" && event.Status != filter.Status {
		return false
	}
	if filter.SessionID != "" && event.SessionID != filter.SessionID {
		return false
	}
	if filter.CorrelationID != "" && (event.CorrelationID == nil || *event.CorrelationID != filter.CorrelationID) {
		return false
	}
	if filter.RiskLevel != "" && event.RiskLevel != filter.RiskLevel {
		return false
	}
	if filter.Retention != "" && event.Retention != filter.Retention {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(event.Action), needle) &&
			!strings.Contains(strings.ToLower(event.Resource), needle) &&
			!strings.Contains(strings.ToLower(event.ActorID), needle) {
			return false
		}
	}
	return true
}

// sortAndPage orders matched events and applies Skip/MaxResults.
func sortAndPage(events []*models.AuditEvent, filter models.AuditEventFilter) []*models.AuditEvent {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !filter.SortAsc {
			// Swapping the operands keeps equal keys non-less under both
			// orders, which negating the comparison would not.
			a, b = b, a
		}
		switch filter.SortBy {
		case "actorId":
			return a.ActorID < b.ActorID
		case "action":
			return a.Action < b.Action
		case "resource":
			return a.Resource < b.Resource
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	})

	if filter.Skip >= len(events) {
		return nil
	}
	events = events[filter.Skip:]
	if filter.MaxResults > 0 && len(events) > filter.MaxResults {
		events = events[:filter.MaxResults]
	}
	return events
}
