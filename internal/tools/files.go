package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/standardbeagle/fsguard/internal/core"
	"github.com/standardbeagle/fsguard/internal/editing"
	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/security"
)

const (
	opReadFile   = "readFile"
	opCreateFile = "createFile"

	binarySampleSize = 8 * 1024
	newFileMode      = fs.FileMode(0o644)
)

// ReadFile returns the file's lines keyed by 1-based number, its checksum and
// the quick hash to pass to the next edit.
func (s *Service) ReadFile(ctx context.Context, req PathRequest) (*FileSnapshot, error) {
	abs, err := s.guard.Authorize(opReadFile, req.Path)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, opReadFile, abs)
}

// snapshot reads an authorized path. The quick hash is taken before the
// content so a concurrent change surfaces as a conflict on the next edit.
func (s *Service) snapshot(ctx context.Context, op, abs string) (*FileSnapshot, error) {
	info, err := s.validator.Validate(op, abs)
	if err != nil {
		return nil, s.withSuggestions(err, abs)
	}
	quickHash := core.QuickHashInfo(abs, info)

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fserrors.NewFileError(op, abs, err)
	}
	if security.IsBinaryData(content[:min(len(content), binarySampleSize)]) {
		return nil, fserrors.NewInputError("path", "binary_file", fmt.Sprintf("%s looks like a binary file", abs))
	}

	lines := editing.SplitLines(string(content))
	snap := &FileSnapshot{
		Path:       abs,
		Content:    lines.Map(),
		TotalLines: lines.Len(),
		Checksum:   core.Checksum(content),
		QuickHash:  quickHash,
	}
	snap.UsedSymbols = s.usedSymbols(ctx, abs, content)
	return snap, nil
}

// usedSymbols is best-effort: unsupported types and parse failures yield nil.
func (s *Service) usedSymbols(ctx context.Context, path string, content []byte) []string {
	if s.symbols == nil || !s.symbols.Supports(path) || ctx.Err() != nil {
		return nil
	}
	symbols, err := s.symbols.UsedSymbols(path, content).Unpack()
	if err != nil {
		s.logger.Debug("enrichment skipped", zap.String("path", path), zap.Error(err))
		return nil
	}
	return symbols
}

// CreateFile writes a new file. It fails with InvalidInput when the path
// already exists, NotFound when the parent directory is missing and
// IOFailure when the directory is not writable.
func (s *Service) CreateFile(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	abs, err := s.guard.Authorize(opCreateFile, req.Path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Lstat(abs); err == nil {
		return nil, fileExists(abs)
	}
	dir := filepath.Dir(abs)
	dirInfo, err := os.Stat(dir)
	if err != nil {
		return nil, fserrors.NewFileError(opCreateFile, dir, err)
	}
	if !dirInfo.IsDir() {
		return nil, fserrors.NewInputError("path", "parent_not_directory", fmt.Sprintf("%s is not a directory", dir))
	}

	data := []byte(req.Content)
	if err := s.editor.Writer().Create(abs, data, newFileMode); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fileExists(abs)
		}
		return nil, fserrors.NewFileError(opCreateFile, abs, err)
	}
	s.logger.Info("file created", zap.String("path", abs), zap.Int("size", len(data)))

	quickHash, _, err := core.StatQuickHash(abs)
	if err != nil {
		return nil, fserrors.NewFileError(opCreateFile, abs, err)
	}
	result := &CreateResult{
		Success:   true,
		Path:      abs,
		Created:   true,
		Size:      len(data),
		Checksum:  core.Checksum(data),
		QuickHash: quickHash,
	}
	if snap, err := s.snapshot(ctx, opCreateFile, abs); err == nil {
		result.File = snap
	} else {
		s.logger.Debug("created file not readable", zap.String("path", abs), zap.Error(err))
	}
	return result, nil
}

func fileExists(path string) error {
	return fserrors.NewInputError("path", "file_exists", fmt.Sprintf("%s already exists", path))
}
