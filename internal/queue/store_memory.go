package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests in place of the durable
// sqlstore implementation.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[uuid.UUID]*Job{}}
}

func (s *MemoryStore) Push(ctx context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

// Pull selects the highest-priority (lowest Priority value), oldest
// CreatedAt Waiting job whose NextRunAt has passed.
func (s *MemoryStore) Pull(ctx context.Context, lockFor time.Duration) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var candidates []*Job
	for _, j := range s.jobs {
		if j.Status == StatusWaiting && !j.NextRunAt.After(now) {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority < candidates[k].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[k].CreatedAt)
	})

	picked := candidates[0]
	picked.Status = StatusActive
	locked := now.Add(lockFor)
	picked.LockedUntil = &locked
	picked.UpdatedAt = now

	cp := *picked
	return &cp, nil
}

func (s *MemoryStore) Complete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrJobLost
	}
	if j.Status != StatusActive {
		return ErrLockLost
	}
	j.Status = StatusCompleted
	j.LockedUntil = nil
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Retry(ctx context.Context, id uuid.UUID, reason string, delay time.Duration, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false, ErrJobLost
	}
	if j.Status != StatusActive {
		return false, ErrLockLost
	}

	j.Attempts++
	j.LastError = reason
	j.LockedUntil = nil
	j.UpdatedAt = time.Now()

	if j.Attempts >= maxAttempts {
		j.Status = StatusFailed
		return true, nil
	}

	j.Status = StatusWaiting
	j.NextRunAt = time.Now().Add(delay)
	return false, nil
}

func (s *MemoryStore) MoveToFailed(ctx context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrJobLost
	}
	j.Status = StatusFailed
	j.LastError = reason
	j.LockedUntil = nil
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListStalled(ctx context.Context, now time.Time) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*Job
	for _, j := range s.jobs {
		if j.Status == StatusActive && j.LockedUntil != nil && j.LockedUntil.Before(now) {
			cp := *j
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *MemoryStore) Requeue(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrJobLost
	}
	j.Status = StatusWaiting
	j.LockedUntil = nil
	j.NextRunAt = time.Now()
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, status Status, limit int) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*Job
	for _, j := range s.jobs {
		if status == "" || j.Status == status {
			cp := *j
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, k int) bool { return res[i].CreatedAt.Before(res[k].CreatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryStore) Clean(ctx context.Context, retention Retention) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := s.evictOldest(StatusCompleted, retention.Completed)
	evicted += s.evictOldest(StatusFailed, retention.Failed)
	return evicted, nil
}

func (s *MemoryStore) evictOldest(status Status, keep int) int {
	var matching []*Job
	for _, j := range s.jobs {
		if j.Status == status {
			matching = append(matching, j)
		}
	}
	if len(matching) <= keep {
		return 0
	}

	sort.Slice(matching, func(i, k int) bool { return matching[i].UpdatedAt.Before(matching[k].UpdatedAt) })
	toEvict := matching[:len(matching)-keep]
	for _, j := range toEvict {
		delete(s.jobs, j.ID)
	}
	return len(toEvict)
}

var _ Store = (*MemoryStore)(nil)
