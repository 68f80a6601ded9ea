package server

import (
	"context"
	"sync"
	"time"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
)

// Store is the interface for job storage backends.
//
// Two implementations exist: an in-memory store for single-instance
// deployments and tests, and a Redis-backed store for multi-instance
// deployments where any instance may answer a status poll.
type Store interface {
	// Create stores a new job.
	Create(ctx context.Context, job *Job) error

	// Get retrieves a job by ID. Returns nil, nil if the job doesn't exist.
	Get(ctx context.Context, id string) (*Job, error)

	// Update applies fn to the stored job and persists the result. The
	// read-modify-write is atomic with respect to other Update calls, so
	// concurrent progress writes and cancellation flags don't clobber each
	// other. Returns JOB_NOT_FOUND if the job doesn't exist.
	Update(ctx context.Context, id string, fn func(*Job)) (*Job, error)

	// Delete removes a job.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired jobs (may be a no-op for Redis, which
	// expires keys natively).
	Cleanup(ctx context.Context) error
}

// DefaultRetention is how long finished jobs stay queryable.
const DefaultRetention = time.Hour

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
}

// NewMemoryStore creates an in-memory job store. A non-positive retention
// falls back to DefaultRetention.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryStore{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return job.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Job)) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job %q not found", id)
	}
	fn(job)
	return job.clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

// Cleanup drops jobs that finished more than the retention period ago.
// Running jobs are never dropped.
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.retention)
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
