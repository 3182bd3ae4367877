package schedule

import (
	"context"
	"sync"
)

type RepositoryStub struct {
	mu        sync.RWMutex
	events    []Event
	loadErr   error
	saveErr   error
	saveCalls int
}

func NewRepositoryStub(initial ...Event) *RepositoryStub {
	return &RepositoryStub{events: append([]Event(nil), initial...)}
}

func (r *RepositoryStub) Load(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]Event(nil), r.events...), nil
}

func (r *RepositoryStub) Save(ctx context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.events = append([]Event(nil), events...)
	return nil
}

// Helper method to make the next loads fail (for testing fail-soft startup)
func (r *RepositoryStub) SetLoadError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErr = err
}

// Helper method to make the next saves fail (for testing rollback)
func (r *RepositoryStub) SetSaveError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// Helper method to get the last saved events (useful for test assertions)
func (r *RepositoryStub) Saved() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

func (r *RepositoryStub) SaveCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveCalls
}
