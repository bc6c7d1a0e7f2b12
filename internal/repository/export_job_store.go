package repository

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// ExportJobStore tracks export jobs in memory. Jobs are transient state tied
// to the worker that processes them, so they do not survive restarts; the
// generated artifacts on disk do.
type ExportJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewExportJobStore creates an empty store.
func NewExportJobStore() *ExportJobStore {
	return &ExportJobStore{jobs: make(map[string]*models.ExportJob)}
}

// Save inserts or replaces a job.
func (s *ExportJobStore) Save(_ context.Context, job *models.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

// Get returns a copy of the job or nil when unknown.
func (s *ExportJobStore) Get(_ context.Context, id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

// Update applies fn to the stored job under the lock and returns the updated
// copy. Returns nil when the job is unknown.
func (s *ExportJobStore) Update(_ context.Context, id string, fn func(*models.ExportJob)) (*models.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	fn(job)
	copied := *job
	return &copied, nil
}

// DeleteOlderThan drops terminal jobs created before the cutoff and returns
// the file paths of their artifacts so the caller can remove them.
func (s *ExportJobStore) DeleteOlderThan(_ context.Context, cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.CreatedAt.Before(cutoff) {
			if job.FilePath != "" {
				paths = append(paths, job.FilePath)
			}
			delete(s.jobs, id)
		}
	}
	return paths
}
