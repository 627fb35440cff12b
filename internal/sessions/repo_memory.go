package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Session),
	}
}

// Create stores a new session.
func (r *MemoryRepo) Create(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess.Record = cloneRecord(sess.Record)
	r.data[sess.ID] = sess
	return nil
}

// GetByID returns a copy of the stored session.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	sess.Record = cloneRecord(sess.Record)
	return sess, nil
}

// Update overwrites an existing session.
func (r *MemoryRepo) Update(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[sess.ID]; !ok {
		return ErrNotFound
	}
	sess.Record = cloneRecord(sess.Record)
	r.data[sess.ID] = sess
	return nil
}

// Delete removes a session.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// DeleteExpired removes every session expired at now.
func (r *MemoryRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, sess := range r.data {
		if sess.Expired(now) {
			delete(r.data, id)
			removed++
		}
	}
	return removed, nil
}
