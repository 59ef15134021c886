package indexing

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/fsguard/internal/core"
	"github.com/standardbeagle/fsguard/internal/security"
)

var errLimitReached = errors.New("index size limit reached")

// walker records file and directory metadata depth-first into the given maps.
// Unreadable directories are skipped; the walk stops at the first cap hit.
type walker struct {
	baseDir  string
	limits   Limits
	excludes []string
	files    map[string]FileRecord
	dirs     map[string]int64
	visited  map[string]struct{}
	limitHit bool
}

func newWalker(baseDir string, limits Limits, excludes []string, files map[string]FileRecord, dirs map[string]int64) *walker {
	return &walker{
		baseDir:  baseDir,
		limits:   limits,
		excludes: excludes,
		files:    files,
		dirs:     dirs,
		visited:  make(map[string]struct{}),
	}
}

// walk records dir and everything below it. It only returns errLimitReached.
func (w *walker) walk(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	if len(w.dirs) >= w.limits.MaxDirs {
		w.limitHit = true
		return errLimitReached
	}
	w.dirs[dir] = info.ModTime().UnixNano()

	if w.limits.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			w.visited[real] = struct{}{}
		}
	}

	// ReadDir may return a partial listing together with an error; use what we got.
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if w.excluded(path) {
			continue
		}

		switch typ := entry.Type(); {
		case typ&fs.ModeSymlink != 0:
			if err := w.visitSymlink(path); err != nil {
				return err
			}
		case entry.IsDir():
			if err := w.walk(path); err != nil {
				return err
			}
		case typ.IsRegular():
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if err := w.addFile(path, info); err != nil {
				return err
			}
		}
	}
	return nil
}

// visitSymlink records a link whose target stays inside the base directory.
// Links that resolve elsewhere are skipped so nothing outside it is indexed.
func (w *walker) visitSymlink(path string) error {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil
	}
	if !security.IsAllowed([]string{w.baseDir}, real) {
		return nil
	}
	target, err := os.Stat(real)
	if err != nil {
		return nil
	}
	if target.Mode().IsRegular() {
		return w.addFile(path, target)
	}
	if !target.IsDir() || !w.limits.FollowSymlinks {
		return nil
	}
	if _, seen := w.visited[real]; seen {
		return nil
	}
	return w.walk(path)
}

func (w *walker) addFile(path string, info os.FileInfo) error {
	if len(w.files) >= w.limits.MaxFiles {
		w.limitHit = true
		return errLimitReached
	}
	w.files[path] = FileRecord{
		Path:      path,
		Size:      uint64(info.Size()),
		Mtime:     info.ModTime().Unix(),
		Extension: extensionOf(path),
		QuickHash: core.QuickHashInfo(path, info),
	}
	return nil
}

// excluded matches the slash-separated path relative to the base directory
func (w *walker) excluded(path string) bool {
	if len(w.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			// Bad pattern shouldn't break scanning
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// extensionOf returns the extension without its leading dot
func extensionOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
