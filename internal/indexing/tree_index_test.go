package indexing

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fsguard/internal/cache"
	"github.com/standardbeagle/fsguard/internal/core"
)

func TestEnsureFreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, _ := newTestIndex(t, root, Options{})

	first, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	second, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
	assert.Len(t, second.Files, 6)
	assert.Equal(t, 1, counter.count(RefreshFull), "only the first call walks")
	assert.Equal(t, 0, counter.count(RefreshPartial))
	assert.Equal(t, 1, counter.count(RefreshFresh))
}

func TestSnapshotContents(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, _, _ := newTestIndex(t, root, Options{})

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	for _, dir := range []string{root, filepath.Join(root, "a"), filepath.Join(root, "b"),
		filepath.Join(root, "b", "deep"), filepath.Join(root, "c")} {
		assert.Contains(t, snap.Dirs, dir, "every visited directory is tracked")
	}

	path := filepath.Join(root, "a", "one.php")
	rec := snap.Files[path]
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, path, rec.Path)
	assert.Equal(t, uint64(info.Size()), rec.Size)
	assert.Equal(t, info.ModTime().Unix(), rec.Mtime)
	assert.Equal(t, "php", rec.Extension)
	assert.Equal(t, core.QuickHashInfo(path, info), rec.QuickHash)
	assert.Equal(t, "a/one.php", snap.RelPath(path))
}

func TestPartialRescanLeavesUntouchedDirectories(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, _ := newTestIndex(t, root, Options{})

	before, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	added := filepath.Join(root, "a", "added.php")
	require.NoError(t, os.WriteFile(added, []byte("<?php"), 0o644))

	after, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, counter.count(RefreshPartial))
	assert.Equal(t, 1, counter.count(RefreshFull))
	assert.Equal(t, 1, counter.last().ChangedDirs)
	assert.Contains(t, after.Files, added)
	assert.Len(t, after.Files, 7)

	for path, rec := range before.Files {
		if filepath.Dir(path) == filepath.Join(root, "a") {
			continue
		}
		assert.Equal(t, rec, after.Files[path], "untouched entry %s must be unchanged", path)
	}
	assert.Equal(t, before.Dirs[filepath.Join(root, "b", "deep")], after.Dirs[filepath.Join(root, "b", "deep")])
	assert.NotContains(t, before.Files, added, "committed snapshots are never mutated")
}

func TestPartialRescanDetectsFilesAtBase(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, _ := newTestIndex(t, root, Options{})

	_, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	added := filepath.Join(root, "new-root.txt")
	require.NoError(t, os.WriteFile(added, []byte("n"), 0o644))

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.Files, added)
	assert.Equal(t, 1, counter.count(RefreshPartial))
}

func TestPartialRescanDropsRemovedDirectory(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, _, _ := newTestIndex(t, root, Options{})

	_, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "b")))

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.NotContains(t, snap.Files, filepath.Join(root, "b", "two.txt"))
	assert.NotContains(t, snap.Files, filepath.Join(root, "b", "deep", "x.md"))
	assert.NotContains(t, snap.Dirs, filepath.Join(root, "b", "deep"))
	assert.Len(t, snap.Files, 4)
}

func TestFullRebuildAboveThreshold(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, _ := newTestIndex(t, root, Options{Limits: Limits{PartialRescanThreshold: 2}})

	_, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)

	for _, dir := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "extra.txt"), []byte("e"), 0o644))
	}

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Files, 9)
	assert.Equal(t, 2, counter.count(RefreshFull))
	assert.Equal(t, 0, counter.count(RefreshPartial))
}

func TestDegradedIndexIsNotCached(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, store := newTestIndex(t, root, Options{Limits: Limits{MaxFiles: 2}})

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.Len(t, snap.Files, 2)
	assert.True(t, counter.last().Degraded)
	assert.False(t, counter.last().Persisted)

	_, ok, err := store.Get(ctx, CacheKey(root))
	require.NoError(t, err)
	assert.False(t, ok, "degraded index must not be persisted")

	_, err = idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.count(RefreshFull), "next call re-walks")
}

func TestDirectoryCapDegrades(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, _, _ := newTestIndex(t, root, Options{Limits: Limits{MaxDirs: 2}})

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.LessOrEqual(t, len(snap.Dirs), 2)
}

func TestOversizedIndexIsNotCached(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, store := newTestIndex(t, root, Options{Limits: Limits{MaxCacheBytes: 100}})

	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Degraded)
	assert.Len(t, snap.Files, 6)

	_, ok, _ := store.Get(ctx, CacheKey(root))
	assert.False(t, ok)

	_, err = idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.count(RefreshFull))
}

func TestIndexLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	first, _, store := newTestIndex(t, root, Options{})

	built, err := first.EnsureFresh(ctx)
	require.NoError(t, err)

	counter := newRefreshCounter()
	second := NewTreeIndex(root, store, Options{Observer: counter})
	loaded, err := second.EnsureFresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, built.Files, loaded.Files)
	assert.Equal(t, 1, counter.count(RefreshFresh))
	assert.True(t, counter.last().Loaded)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, counter, store := newTestIndex(t, root, Options{})

	_, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Invalidate(ctx))

	_, ok, _ := store.Get(ctx, CacheKey(root))
	assert.False(t, ok)

	_, err = idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.count(RefreshFull))
}

// gatedStore blocks the first Get until release is closed
type gatedStore struct {
	*cache.MemoryStore[*Snapshot]
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, key string) (*Snapshot, bool, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.MemoryStore.Get(ctx, key)
}

func TestInvalidateDuringRefresh(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	mem, err := cache.NewMemoryStore[*Snapshot](4)
	require.NoError(t, err)
	store := &gatedStore{MemoryStore: mem, entered: make(chan struct{}), release: make(chan struct{})}
	counter := newRefreshCounter()
	idx := NewTreeIndex(root, store, Options{Observer: counter})

	done := make(chan *Snapshot, 1)
	go func() {
		snap, err := idx.EnsureFresh(ctx)
		assert.NoError(t, err)
		done <- snap
	}()

	<-store.entered
	require.NoError(t, idx.Invalidate(ctx))
	close(store.release)

	inFlight := <-done
	require.NotNil(t, inFlight)
	assert.Len(t, inFlight.Files, 6, "the in-flight caller still gets its answer")

	assert.Nil(t, idx.current.Load(), "a snapshot built before the invalidation is not kept")
	_, ok, err := mem.Get(ctx, CacheKey(root))
	require.NoError(t, err)
	assert.False(t, ok, "nor persisted")

	_, err = idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.count(RefreshFull))
	assert.NotNil(t, idx.current.Load())
}

func TestSearchAndFilters(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, _, _ := newTestIndex(t, root, Options{})

	t.Run("pattern on relative path", func(t *testing.T) {
		records, err := idx.Search(ctx, regexp.MustCompile(`(?i)o[^/]*`), "")
		require.NoError(t, err)
		paths := recordPaths(records)
		assert.Equal(t, []string{
			filepath.Join(root, "a", "one.php"),
			filepath.Join(root, "b", "two.txt"),
			filepath.Join(root, "c", "four.php"),
			filepath.Join(root, "root.txt"),
		}, paths)
	})

	t.Run("pattern with extension", func(t *testing.T) {
		records, err := idx.Search(ctx, regexp.MustCompile(`(?i)o`), ".php")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("by extension", func(t *testing.T) {
		records, err := idx.ByExtension(ctx, "php")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "a", "one.php"), filepath.Join(root, "c", "four.php")},
			recordPaths(records))
	})

	t.Run("all with predicate", func(t *testing.T) {
		all, err := idx.All(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 6)

		small, err := idx.All(ctx, func(_ *Snapshot, rec FileRecord) bool { return rec.Size <= 3 })
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "b", "deep", "x.md"), filepath.Join(root, "b", "two.txt")},
			recordPaths(small))
	})
}

func TestExcludePatterns(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{
		"src/app.js":                "app",
		"node_modules/lib/index.js": "lib",
		"src/node_modules/x.js":     "x",
	})
	idx, _, _ := newTestIndex(t, root, Options{Exclude: []string{"**/node_modules"}})

	records, err := idx.All(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "app.js")}, recordPaths(records))
}

func TestUnreadableDirectoryIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	ctx := context.Background()
	root := threeDirTree(t)
	locked := filepath.Join(root, "b")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	idx, _, _ := newTestIndex(t, root, Options{})
	snap, err := idx.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.Files, filepath.Join(root, "a", "one.php"))
	assert.NotContains(t, snap.Files, filepath.Join(root, "b", "two.txt"))
}

func TestMissingBaseDir(t *testing.T) {
	idx, _, _ := newTestIndex(t, filepath.Join(t.TempDir(), "missing"), Options{})
	_, err := idx.EnsureFresh(context.Background())
	assert.Error(t, err)
}

func TestConcurrentEnsureFresh(t *testing.T) {
	ctx := context.Background()
	root := threeDirTree(t)
	idx, _, _ := newTestIndex(t, root, Options{})

	results := make([]*Snapshot, 8)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			snap, err := idx.EnsureFresh(ctx)
			results[i] = snap
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, snap := range results {
		assert.Len(t, snap.Files, 6)
	}
}

func TestOutermost(t *testing.T) {
	sep := string(os.PathSeparator)
	dirs := []string{sep + "a" + sep + "b", sep + "a", sep + "a-b", sep + "c" + sep + "d"}
	assert.Equal(t, []string{sep + "a", sep + "a-b", sep + "c" + sep + "d"}, outermost(dirs))
}

func recordPaths(records []FileRecord) []string {
	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = rec.Path
	}
	return paths
}
