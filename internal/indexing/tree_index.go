package indexing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/fsguard/internal/cache"
	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// Options configure a TreeIndex or Registry
type Options struct {
	Limits   Limits
	Exclude  []string // doublestar patterns relative to the base directory
	Observer Observer
	Logger   *zap.Logger
}

// TreeIndex maintains the file metadata of one base directory. It refreshes
// lazily on every access using directory mtimes to decide between serving the
// cached snapshot, re-walking changed subtrees, or rebuilding from scratch.
type TreeIndex struct {
	baseDir string
	key     string
	store   cache.Store[*Snapshot]
	opts    Options
	logger  *zap.Logger
	group   *singleflight.Group

	current atomic.Pointer[Snapshot]

	// mu orders publishing against Invalidate; gen counts invalidations so a
	// refresh that started before one never publishes its result.
	mu  sync.Mutex
	gen uint64
}

// NewTreeIndex creates an index for baseDir backed by store
func NewTreeIndex(baseDir string, store cache.Store[*Snapshot], opts Options) *TreeIndex {
	return newTreeIndex(baseDir, store, opts, &singleflight.Group{})
}

func newTreeIndex(baseDir string, store cache.Store[*Snapshot], opts Options, group *singleflight.Group) *TreeIndex {
	baseDir = filepath.Clean(baseDir)
	opts.Limits = opts.Limits.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeIndex{
		baseDir: baseDir,
		key:     CacheKey(baseDir),
		store:   store,
		opts:    opts,
		logger:  logger.With(zap.String("base_dir", baseDir)),
		group:   group,
	}
}

// CacheKey is the store key of the index for baseDir
func CacheKey(baseDir string) string {
	return cache.Key(cacheKeyPrefix, filepath.Clean(baseDir))
}

// BaseDir returns the indexed directory
func (t *TreeIndex) BaseDir() string {
	return t.baseDir
}

// EnsureFresh returns a snapshot that reflects the filesystem as of this call.
// Concurrent callers share a single refresh.
func (t *TreeIndex) EnsureFresh(ctx context.Context) (*Snapshot, error) {
	v, err, _ := t.group.Do(t.key, func() (interface{}, error) {
		return t.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Search returns records whose path relative to the base directory matches
// pattern, optionally restricted to one extension.
func (t *TreeIndex) Search(ctx context.Context, pattern *regexp.Regexp, extension string) ([]FileRecord, error) {
	extension = normalizeExtension(extension)
	return t.All(ctx, func(snap *Snapshot, rec FileRecord) bool {
		if extension != "" && rec.Extension != extension {
			return false
		}
		return pattern.MatchString(snap.RelPath(rec.Path))
	})
}

// ByExtension returns records with the given extension (leading dot optional)
func (t *TreeIndex) ByExtension(ctx context.Context, extension string) ([]FileRecord, error) {
	extension = normalizeExtension(extension)
	return t.All(ctx, func(_ *Snapshot, rec FileRecord) bool {
		return rec.Extension == extension
	})
}

// All returns every record accepted by predicate, or every record when
// predicate is nil, ordered by path.
func (t *TreeIndex) All(ctx context.Context, predicate func(*Snapshot, FileRecord) bool) ([]FileRecord, error) {
	snap, err := t.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]FileRecord, 0)
	for _, rec := range snap.Files {
		if predicate == nil || predicate(snap, rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// Invalidate drops the in-memory and persisted index; the next access rebuilds.
// A refresh already in flight still answers its callers but is not kept.
func (t *TreeIndex) Invalidate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.current.Store(nil)
	t.group.Forget(t.key)
	if t.store == nil {
		return nil
	}
	return t.store.Forget(ctx, t.key)
}

func (t *TreeIndex) generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

func (t *TreeIndex) refresh(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	gen := t.generation()
	info, err := os.Stat(t.baseDir)
	if err != nil {
		return nil, fserrors.NewFileError("index", t.baseDir, err)
	}
	if !info.IsDir() {
		return nil, fserrors.NewInputError("baseDir", "not_a_directory", t.baseDir+" is not a directory")
	}

	snap := t.current.Load()
	loaded := false
	if snap == nil {
		snap = t.load(ctx)
		loaded = snap != nil
	}
	if snap == nil {
		return t.commit(ctx, gen, t.rebuild(), RefreshEvent{Kind: RefreshFull}, start), nil
	}

	changed := t.changedDirs(snap)
	ev := RefreshEvent{Loaded: loaded, ChangedDirs: len(changed)}
	switch {
	case len(changed) == 0:
		t.mu.Lock()
		if t.gen == gen {
			t.current.Store(snap)
		}
		t.mu.Unlock()
		ev.Kind = RefreshFresh
		ev.Files, ev.Dirs = len(snap.Files), len(snap.Dirs)
		ev.Persisted = true
		ev.BaseDir = t.baseDir
		ev.Duration = time.Since(start)
		t.observe(ev)
		return snap, nil
	case len(changed) > t.opts.Limits.PartialRescanThreshold:
		ev.Kind = RefreshFull
		return t.commit(ctx, gen, t.rebuild(), ev, start), nil
	default:
		ev.Kind = RefreshPartial
		return t.commit(ctx, gen, t.rescan(snap, changed), ev, start), nil
	}
}

func (t *TreeIndex) load(ctx context.Context) *Snapshot {
	if t.store == nil {
		return nil
	}
	snap, ok, err := t.store.Get(ctx, t.key)
	if err != nil {
		t.logger.Warn("failed to load cached index", zap.Error(err))
		return nil
	}
	if !ok || snap == nil || snap.BaseDir != t.baseDir {
		return nil
	}
	if snap.Files == nil {
		snap.Files = map[string]FileRecord{}
	}
	if snap.Dirs == nil {
		snap.Dirs = map[string]int64{}
	}
	return snap
}

// changedDirs stats every tracked directory. It stops counting once the
// partial rescan threshold is exceeded since a full rebuild follows anyway.
func (t *TreeIndex) changedDirs(snap *Snapshot) []string {
	var changed []string
	for dir, mtime := range snap.Dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || info.ModTime().UnixNano() != mtime {
			changed = append(changed, dir)
			if len(changed) > t.opts.Limits.PartialRescanThreshold {
				break
			}
		}
	}
	return changed
}

func (t *TreeIndex) rebuild() *Snapshot {
	snap := &Snapshot{
		BaseDir: t.baseDir,
		Files:   make(map[string]FileRecord),
		Dirs:    make(map[string]int64),
	}
	w := newWalker(t.baseDir, t.opts.Limits, t.opts.Exclude, snap.Files, snap.Dirs)
	_ = w.walk(t.baseDir)
	snap.Degraded = w.limitHit
	snap.BuiltAt = time.Now()
	return snap
}

// rescan copies snap, drops everything under each changed directory and
// re-walks only those subtrees.
func (t *TreeIndex) rescan(snap *Snapshot, changed []string) *Snapshot {
	roots := outermost(changed)

	next := &Snapshot{
		BaseDir: t.baseDir,
		Files:   make(map[string]FileRecord, len(snap.Files)),
		Dirs:    make(map[string]int64, len(snap.Dirs)),
	}
	for path, rec := range snap.Files {
		if !underAny(path, roots) {
			next.Files[path] = rec
		}
	}
	for dir, mtime := range snap.Dirs {
		if !underAny(dir, roots) {
			next.Dirs[dir] = mtime
		}
	}

	w := newWalker(t.baseDir, t.opts.Limits, t.opts.Exclude, next.Files, next.Dirs)
	for _, root := range roots {
		if err := w.walk(root); errors.Is(err, errLimitReached) {
			break
		}
	}
	next.Degraded = w.limitHit
	next.BuiltAt = time.Now()
	return next
}

// commit publishes snap and persists it unless it is degraded or too large,
// in which case it is served once and dropped so the next call re-walks.
// A snapshot built before the latest Invalidate is served but never kept.
func (t *TreeIndex) commit(ctx context.Context, gen uint64, snap *Snapshot, ev RefreshEvent, start time.Time) *Snapshot {
	ev.BaseDir = t.baseDir
	ev.Files, ev.Dirs = len(snap.Files), len(snap.Dirs)
	ev.Degraded = snap.Degraded

	t.mu.Lock()
	tooLarge := snap.EstimatedBytes() > t.opts.Limits.MaxCacheBytes
	switch {
	case t.gen != gen:
		t.logger.Debug("discarding index built before invalidation")
	case snap.Degraded || tooLarge:
		t.current.Store(nil)
		if t.store != nil {
			if err := t.store.Forget(ctx, t.key); err != nil {
				t.logger.Warn("failed to drop cached index", zap.Error(err))
			}
		}
		t.logger.Warn("index not cached",
			zap.Bool("degraded", snap.Degraded),
			zap.Int64("estimated_bytes", snap.EstimatedBytes()),
			zap.Int("files", len(snap.Files)),
			zap.Int("dirs", len(snap.Dirs)))
	default:
		t.current.Store(snap)
		ev.Persisted = true
		if t.store != nil {
			if err := t.store.Forever(ctx, t.key, snap); err != nil {
				ev.Persisted = false
				t.logger.Warn("failed to persist index", zap.Error(err))
			}
		}
	}
	t.mu.Unlock()

	ev.Duration = time.Since(start)
	t.logger.Debug("index refreshed",
		zap.String("kind", string(ev.Kind)),
		zap.Int("changed_dirs", ev.ChangedDirs),
		zap.Int("files", ev.Files),
		zap.Duration("duration", ev.Duration))
	t.observe(ev)
	return snap
}

func (t *TreeIndex) observe(ev RefreshEvent) {
	if t.opts.Observer != nil {
		t.opts.Observer.ObserveRefresh(ev)
	}
}

// outermost drops directories nested under another directory in the list
func outermost(dirs []string) []string {
	sorted := append([]string(nil), dirs...)
	sort.Strings(sorted)
	roots := make([]string, 0, len(sorted))
	for _, dir := range sorted {
		if !underAny(dir, roots) {
			roots = append(roots, dir)
		}
	}
	return roots
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func normalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
