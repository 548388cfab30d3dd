// Package jobs stores analysis job records.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jonathan/catalog-agent/internal/types"
)

// ErrNotFound is returned when a job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrExists is returned when creating a job whose id is already stored.
var ErrExists = errors.New("job already exists")

// Store persists job records. Implementations must hand out and keep copies so
// that callers never share a record with the store.
type Store interface {
	Create(ctx context.Context, job *types.Job) error
	Get(ctx context.Context, id string) (*types.Job, error)
	Save(ctx context.Context, job *types.Job) error
	// ListByProduct returns a product's jobs, newest first
	ListByProduct(ctx context.Context, productID string) ([]*types.Job, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*types.Job)}
}

// Create stores a new job.
func (s *MemoryStore) Create(_ context.Context, job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrExists
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Save replaces the stored job. Last writer wins.
func (s *MemoryStore) Save(_ context.Context, job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// ListByProduct returns copies of a product's jobs, newest first.
func (s *MemoryStore) ListByProduct(_ context.Context, productID string) ([]*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*types.Job{}
	for _, job := range s.jobs {
		if job.ProductID == productID {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}
