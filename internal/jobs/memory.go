package jobs

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same semantics as the
// Postgres one. It backs tests and single-process deployments where
// durability across restarts is not required.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

// Enqueue schedules a job unless a live one already exists for the same
// (kind, correlation id).
func (s *MemoryStore) Enqueue(ctx context.Context, kind Kind, correlationID string, fireAt time.Time, payload Payload) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.Kind == kind && j.CorrelationID == correlationID && j.Status.Live() {
			return nil, ErrDuplicateJob
		}
	}

	job := &Job{
		ID:            uuid.New().String(),
		Kind:          kind,
		CorrelationID: correlationID,
		FireAt:        fireAt,
		Payload:       data,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.jobs[job.ID] = job

	copy := *job
	return &copy, nil
}

// Cancel removes a pending job matching (kind, correlationID).
func (s *MemoryStore) Cancel(ctx context.Context, kind Kind, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.Kind == kind && j.CorrelationID == correlationID && j.Status == StatusPending {
			j.Status = StatusCancelled
			j.UpdatedAt = time.Now()
		}
	}
	return nil
}

// HasLive reports whether a live job exists for (kind, correlationID).
func (s *MemoryStore) HasLive(ctx context.Context, kind Kind, correlationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.Kind == kind && j.CorrelationID == correlationID && j.Status.Live() {
			return true, nil
		}
	}
	return false, nil
}

// Claim leases the next due job of the given kind.
func (s *MemoryStore) Claim(ctx context.Context, kind Kind, now, lockedUntil time.Time) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Job
	for _, j := range s.jobs {
		if j.Kind != kind || j.FireAt.After(now) {
			continue
		}
		if j.Status == StatusPending || (j.Status == StatusRunning && j.LockedUntil.Before(now)) {
			due = append(due, j)
		}
	}
	if len(due) == 0 {
		return nil, ErrNoJob
	}

	sort.Slice(due, func(i, k int) bool { return due[i].FireAt.Before(due[k].FireAt) })

	job := due[0]
	job.Status = StatusRunning
	job.Attempts++
	job.LockedUntil = lockedUntil
	job.UpdatedAt = time.Now()

	copy := *job
	return &copy, nil
}

// MarkDone finishes a job successfully.
func (s *MemoryStore) MarkDone(ctx context.Context, jobID string) error {
	return s.setStatus(jobID, StatusDone, time.Time{})
}

// MarkRetry reschedules a failed job.
func (s *MemoryStore) MarkRetry(ctx context.Context, jobID string, retryAt time.Time) error {
	return s.setStatus(jobID, StatusPending, retryAt)
}

// MarkFailed terminates a job that exhausted its retries.
func (s *MemoryStore) MarkFailed(ctx context.Context, jobID string) error {
	return s.setStatus(jobID, StatusFailed, time.Time{})
}

func (s *MemoryStore) setStatus(jobID string, status Status, fireAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	job.Status = status
	job.LockedUntil = time.Time{}
	if !fireAt.IsZero() {
		job.FireAt = fireAt
	}
	job.UpdatedAt = time.Now()
	return nil
}

// Snapshot returns a copy of every job, for test assertions.
func (s *MemoryStore) Snapshot() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		copy := *j
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// Live returns the live job for (kind, correlationID), or nil.
func (s *MemoryStore) Live(kind Kind, correlationID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.Kind == kind && j.CorrelationID == correlationID && j.Status.Live() {
			copy := *j
			return &copy
		}
	}
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
