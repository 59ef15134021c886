package indexing

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fsguard/internal/cache"
)

// refreshCounter counts refreshes by kind
type refreshCounter struct {
	mu     sync.Mutex
	counts map[RefreshKind]int
	events []RefreshEvent
}

func newRefreshCounter() *refreshCounter {
	return &refreshCounter{counts: map[RefreshKind]int{}}
}

func (c *refreshCounter) ObserveRefresh(ev RefreshEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ev.Kind]++
	c.events = append(c.events, ev)
}

func (c *refreshCounter) count(kind RefreshKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

func (c *refreshCounter) last() RefreshEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

// writeTree creates files (relative path -> content) under a fresh temp dir and
// pins every mtime an hour in the past so later changes are always visible.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	pinMtimes(t, root)
	return root
}

func pinMtimes(t *testing.T, root string) {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	var paths []string
	require.NoError(t, filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	}))
	// Children first so touching a file does not move its directory's mtime afterwards.
	for i := len(paths) - 1; i >= 0; i-- {
		require.NoError(t, os.Chtimes(paths[i], past, past))
	}
}

func newTestIndex(t *testing.T, root string, opts Options) (*TreeIndex, *refreshCounter, *cache.MemoryStore[*Snapshot]) {
	t.Helper()
	store, err := cache.NewMemoryStore[*Snapshot](16)
	require.NoError(t, err)
	counter := newRefreshCounter()
	opts.Observer = counter
	return NewTreeIndex(root, store, opts), counter, store
}

func threeDirTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"a/one.php":   "<?php echo 1;",
		"b/two.txt":   "two",
		"b/deep/x.md": "# x",
		"c/three.js":  "console.log(3)",
		"c/four.php":  "<?php echo 4;",
		"root.txt":    "root",
	})
}
