package indexing

import (
	"strings"
	"time"
)

// FileRecord is the metadata tracked for one file. Mtime is in epoch seconds.
type FileRecord struct {
	Path      string `json:"path"`
	Size      uint64 `json:"size"`
	Mtime     int64  `json:"mtime"`
	Extension string `json:"extension"`
	QuickHash string `json:"quickHash"`
}

// Snapshot is an immutable view of a directory tree. A refresh never mutates
// a committed snapshot; it builds a replacement and swaps it in.
type Snapshot struct {
	BaseDir string                `json:"baseDir"`
	Files   map[string]FileRecord `json:"files"`
	// Dirs maps every visited directory to its mtime in nanoseconds.
	Dirs     map[string]int64 `json:"dirs"`
	BuiltAt  time.Time        `json:"builtAt"`
	Degraded bool             `json:"-"`
}

// EstimatedBytes approximates the in-memory footprint of the snapshot.
func (s *Snapshot) EstimatedBytes() int64 {
	return int64(len(s.Files))*estimatedBytesPerFile + int64(len(s.Dirs))*estimatedBytesPerDir
}

// RelPath returns path relative to the snapshot's base directory, slash separated.
func (s *Snapshot) RelPath(path string) string {
	rel := strings.TrimPrefix(path, s.BaseDir)
	rel = strings.TrimLeft(rel, `/\`)
	return strings.ReplaceAll(rel, `\`, "/")
}

// Limits bounds a walk and controls persistence.
type Limits struct {
	MaxFiles               int
	MaxDirs                int
	PartialRescanThreshold int
	MaxCacheBytes          int64
	FollowSymlinks         bool
}

// DefaultLimits returns the standard caps
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:               DefaultMaxFiles,
		MaxDirs:                DefaultMaxDirs,
		PartialRescanThreshold: DefaultPartialRescanThreshold,
		MaxCacheBytes:          DefaultMaxCacheBytes,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxFiles <= 0 {
		l.MaxFiles = d.MaxFiles
	}
	if l.MaxDirs <= 0 {
		l.MaxDirs = d.MaxDirs
	}
	if l.PartialRescanThreshold <= 0 {
		l.PartialRescanThreshold = d.PartialRescanThreshold
	}
	if l.MaxCacheBytes <= 0 {
		l.MaxCacheBytes = d.MaxCacheBytes
	}
	return l
}

// RefreshKind describes what a refresh had to do.
type RefreshKind string

const (
	// RefreshFresh means the cached index was served after the liveness check.
	RefreshFresh RefreshKind = "fresh"
	// RefreshPartial means only changed subtrees were re-walked.
	RefreshPartial RefreshKind = "partial"
	// RefreshFull means the whole base directory was walked.
	RefreshFull RefreshKind = "full"
)

// RefreshEvent is reported to the Observer after every refresh.
type RefreshEvent struct {
	BaseDir     string
	Kind        RefreshKind
	Loaded      bool // the starting point came from the cache store
	ChangedDirs int
	Files       int
	Dirs        int
	Degraded    bool
	Persisted   bool
	Duration    time.Duration
}

// Observer receives refresh events, e.g. for metrics.
type Observer interface {
	ObserveRefresh(RefreshEvent)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(RefreshEvent)

// ObserveRefresh implements Observer
func (f ObserverFunc) ObserveRefresh(ev RefreshEvent) { f(ev) }
