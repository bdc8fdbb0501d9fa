package memory

import (
	"context"
	"sync"

	"github.com/nandanugg/gird/module/core/internal/repository/database"
)

var _ database.KeyValueStore = (*KVStore)(nil)

// KVStore keeps values in process memory. Used when no durable backend is configured and in tests.
type KVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewKVStore() *KVStore {
	return &KVStore{values: make(map[string]string)}
}

func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *KVStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *KVStore) Ping(context.Context) error { return nil }
