package store

import "sync"

// InMemoryKV is a thread-safe in-memory KV implementation, mostly useful for
// tests and throwaway sessions.
type InMemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ KV = (*InMemoryKV)(nil)

func NewInMemoryKV() *InMemoryKV {
	return &InMemoryKV{
		values: map[string]string{},
	}
}

func (s *InMemoryKV) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *InMemoryKV) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
