package repository

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// MemoryMappingStore keeps pseudonym mappings in process memory. Used in
// tests and single-node deployments without Postgres.
type MemoryMappingStore struct {
	mu    sync.RWMutex
	items map[string]models.PseudonymizationMapping
}

// NewMemoryMappingStore creates an empty store.
func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{items: make(map[string]models.PseudonymizationMapping)}
}

// Save stores the mapping; an existing pseudonym is left untouched.
func (s *MemoryMappingStore) Save(_ context.Context, mapping *models.PseudonymizationMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[mapping.Pseudonym]; !exists {
		s.items[mapping.Pseudonym] = *mapping
	}
	return nil
}

// FindByPseudonym returns a copy of the mapping or nil.
func (s *MemoryMappingStore) FindByPseudonym(_ context.Context, pseudonym string) (*models.PseudonymizationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mapping, ok := s.items[pseudonym]
	if !ok {
		return nil, nil
	}
	copied := mapping
	return &copied, nil
}

// DeleteExpired removes mappings past their expiry.
func (s *MemoryMappingStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for pseudonym, mapping := range s.items {
		if !mapping.ExpiresAt.IsZero() && now.After(mapping.ExpiresAt) {
			delete(s.items, pseudonym)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored mappings.
func (s *MemoryMappingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
