package editing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AtomicWriter commits file content through a sibling temp file so a failed
// write never leaves the target partially written.
type AtomicWriter struct {
	rename func(oldpath, newpath string) error
	link   func(oldpath, newpath string) error
}

// NewAtomicWriter creates a writer using the OS rename and link calls
func NewAtomicWriter() *AtomicWriter {
	return &AtomicWriter{rename: os.Rename, link: os.Link}
}

// Replace writes data to a locked temp file next to path and renames it over
// path. The returned info is taken from the temp file before the rename, which
// keeps size and mtime, so it describes the committed file.
func (w *AtomicWriter) Replace(path string, data []byte, perm fs.FileMode) (fs.FileInfo, error) {
	return w.commit(path, data, perm, w.rename)
}

// Create writes data to a new file at path and fails with fs.ErrExist if
// something already exists there. The temp file is committed with a hard
// link, which never replaces an existing entry.
func (w *AtomicWriter) Create(path string, data []byte, perm fs.FileMode) error {
	_, err := w.commit(path, data, perm, func(tmp, target string) error {
		err := w.link(tmp, target)
		if err == nil || errors.Is(err, fs.ErrExist) {
			return err
		}
		// Filesystems without hard links: fall back to a checked rename.
		if _, statErr := os.Lstat(target); statErr == nil {
			return fs.ErrExist
		}
		return w.rename(tmp, target)
	})
	return err
}

func (w *AtomicWriter) commit(path string, data []byte, perm fs.FileMode, publish func(tmp, target string) error) (fs.FileInfo, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".tmp_"+base+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// After a link the temp name is a second entry for the same file; after a
	// rename it no longer exists. Removing it is correct in every case.
	defer os.Remove(tmpName)

	info, err := w.writeLocked(tmp, data, perm)
	if err != nil {
		return nil, err
	}
	if err := publish(tmpName, path); err != nil {
		return nil, fmt.Errorf("commit %s: %w", path, err)
	}
	return info, nil
}

func (w *AtomicWriter) writeLocked(tmp *os.File, data []byte, perm fs.FileMode) (fs.FileInfo, error) {
	if err := lockFile(tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("lock temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stat temp file: %w", err)
	}
	_ = unlockFile(tmp)
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return info, nil
}
