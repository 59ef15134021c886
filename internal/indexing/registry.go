package indexing

import (
	"context"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/fsguard/internal/cache"
)

// Registry is the index cache service: it owns one TreeIndex per base
// directory, all sharing a single cache store. Indexes are created on first
// use and live until evicted or invalidated; there is no automatic expiry.
type Registry struct {
	store cache.Store[*Snapshot]
	opts  Options
	group singleflight.Group

	mu      sync.Mutex
	indexes *lru.Cache[string, *TreeIndex]
}

// NewRegistry creates a registry keeping up to size indexes in memory.
// Evicted indexes reload from store on their next use.
func NewRegistry(store cache.Store[*Snapshot], size int, opts Options) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	indexes, err := lru.New[string, *TreeIndex](size)
	if err != nil {
		return nil, err
	}
	if store == nil {
		if store, err = cache.NewMemoryStore[*Snapshot](cache.DefaultSize); err != nil {
			return nil, err
		}
	}
	return &Registry{store: store, opts: opts, indexes: indexes}, nil
}

// For returns the index of baseDir, creating it if needed
func (r *Registry) For(baseDir string) *TreeIndex {
	baseDir = filepath.Clean(baseDir)

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indexes.Get(baseDir); ok {
		return idx
	}
	idx := newTreeIndex(baseDir, r.store, r.opts, &r.group)
	r.indexes.Add(baseDir, idx)
	return idx
}

// Invalidate drops the index of baseDir from memory and from the store
func (r *Registry) Invalidate(ctx context.Context, baseDir string) error {
	baseDir = filepath.Clean(baseDir)

	r.mu.Lock()
	idx, ok := r.indexes.Peek(baseDir)
	r.indexes.Remove(baseDir)
	r.mu.Unlock()

	if ok {
		return idx.Invalidate(ctx)
	}
	r.group.Forget(CacheKey(baseDir))
	return r.store.Forget(ctx, CacheKey(baseDir))
}

// Len reports the number of indexes held in memory
func (r *Registry) Len() int {
	return r.indexes.Len()
}
