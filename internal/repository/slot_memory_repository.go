package repository

import (
	"context"
	"sync"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// MemorySlotRepository keeps slot payloads in process memory. It backs the
// development profile and stands in for the durable collaborator in tests.
type MemorySlotRepository struct {
	mu    sync.RWMutex
	slots map[string][]byte
	fail  map[string]error
}

// NewMemorySlotRepository constructs an empty in-memory slot repository.
func NewMemorySlotRepository() *MemorySlotRepository {
	return &MemorySlotRepository{slots: make(map[string][]byte), fail: make(map[string]error)}
}

// Get returns a copy of the payload stored at key.
func (r *MemorySlotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail[key]; err != nil {
		return nil, err
	}
	payload, ok := r.slots[key]
	if !ok {
		return nil, appErrors.ErrSlotNotFound
	}
	return append([]byte(nil), payload...), nil
}

// Set stores a copy of payload at key.
func (r *MemorySlotRepository) Set(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[key]; err != nil {
		return err
	}
	r.slots[key] = append([]byte(nil), payload...)
	return nil
}

// Put writes raw content, bypassing failure injection. Useful for seeding another "tab".
func (r *MemorySlotRepository) Put(key string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[key] = append([]byte(nil), payload...)
}

// FailOn makes every Get and Set on key return err; a nil err clears the failure.
func (r *MemorySlotRepository) FailOn(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, key)
		return
	}
	r.fail[key] = err
}
