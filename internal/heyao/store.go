package heyao

import (
	"context"
	"sync"
)

// PointerStore tracks, per conversation, the most recently generated
// notification image so the next generation can clean its predecessor up.
type PointerStore interface {
	// Last returns the recorded path for the session, or "" when none.
	Last(ctx context.Context, sessionKey string) (string, error)
	// Set records path as the session's current image.
	Set(ctx context.Context, sessionKey, path string) error
}

// MemoryPointerStore is the default in-process store.
type MemoryPointerStore struct {
	mu    sync.Mutex
	paths map[string]string
}

func NewMemoryPointerStore() *MemoryPointerStore {
	return &MemoryPointerStore{paths: make(map[string]string)}
}

func (s *MemoryPointerStore) Last(ctx context.Context, sessionKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths[sessionKey], nil
}

func (s *MemoryPointerStore) Set(ctx context.Context, sessionKey, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[sessionKey] = path
	return nil
}
