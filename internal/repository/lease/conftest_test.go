package lease

import (
	"context"
	"sync"
	"time"
)

// fakeStore implements the consumer interface in memory.
type fakeStore struct {
	mu         sync.Mutex
	keys       map[string]string
	acquireErr error
	releases   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: make(map[string]string)}
}

func (f *fakeStore) AcquireLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if _, held := f.keys[key]; held {
		return false, nil
	}
	f.keys[key] = token
	return true, nil
}

func (f *fakeStore) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	if f.keys[key] != token {
		return false, nil
	}
	delete(f.keys, key)
	return true, nil
}
