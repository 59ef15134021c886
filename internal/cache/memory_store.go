package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryStore keeps values in process memory with LRU eviction.
// Values are stored as-is, so callers must not mutate a value after storing it.
type MemoryStore[V any] struct {
	entries *lru.Cache[string, memoryEntry[V]]
}

// NewMemoryStore creates an in-memory store holding up to size entries
func NewMemoryStore[V any](size int) (*MemoryStore[V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, memoryEntry[V]](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore[V]{entries: entries}, nil
}

func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V
	ent, ok := s.entries.Get(key)
	if !ok {
		return zero, false, nil
	}
	if expired(ent.expiresAt) {
		s.entries.Remove(key)
		return zero, false, nil
	}
	return ent.value, true, nil
}

func (s *MemoryStore[V]) Put(_ context.Context, key string, value V, ttl time.Duration) error {
	s.entries.Add(key, memoryEntry[V]{value: value, expiresAt: expiry(ttl)})
	return nil
}

func (s *MemoryStore[V]) Forever(ctx context.Context, key string, value V) error {
	return s.Put(ctx, key, value, 0)
}

func (s *MemoryStore[V]) Forget(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

// Len reports the number of live and not yet purged entries
func (s *MemoryStore[V]) Len() int {
	return s.entries.Len()
}

func (s *MemoryStore[V]) Close() error {
	s.entries.Purge()
	return nil
}
