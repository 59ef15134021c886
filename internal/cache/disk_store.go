package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type diskEntry[V any] struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
	Value     V         `json:"value"`
}

// DiskStore persists each value as a JSON file named after the hashed key,
// so cached indexes survive process restarts.
type DiskStore[V any] struct {
	mu   sync.Mutex
	root string
}

// NewDiskStore creates a store rooted at dir, creating it if needed
func NewDiskStore[V any](dir string) (*DiskStore[V], error) {
	root := strings.TrimSpace(dir)
	if root == "" {
		root = filepath.Join(os.TempDir(), "fsguard-cache")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskStore[V]{root: root}, nil
}

func (s *DiskStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	var ent diskEntry[V]
	if err := json.Unmarshal(raw, &ent); err != nil {
		// A corrupt entry is a miss; the next Put replaces it.
		_ = os.Remove(s.pathFor(key))
		return zero, false, nil
	}
	if ent.Key != key || expired(ent.ExpiresAt) {
		_ = os.Remove(s.pathFor(key))
		return zero, false, nil
	}
	return ent.Value, true, nil
}

func (s *DiskStore[V]) Put(_ context.Context, key string, value V, ttl time.Duration) error {
	raw, err := json.Marshal(diskEntry[V]{Key: key, ExpiresAt: expiry(ttl), Value: value})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.root, ".entry-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.pathFor(key))
}

func (s *DiskStore[V]) Forever(ctx context.Context, key string, value V) error {
	return s.Put(ctx, key, value, 0)
}

func (s *DiskStore[V]) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStore[V]) Close() error {
	return nil
}

func (s *DiskStore[V]) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.root, hex.EncodeToString(sum[:])+".json")
}
