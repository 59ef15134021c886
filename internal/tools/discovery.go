package tools

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/indexing"
	"github.com/standardbeagle/fsguard/internal/search"
)

// FindFilesByName matches the query against paths relative to BaseDir.
func (s *Service) FindFilesByName(ctx context.Context, req FindRequest) (*FindResult, error) {
	files, err := s.engine.ByFilename(ctx, req.BaseDir, req.Query, req.Extension)
	if err != nil {
		return nil, err
	}
	return s.findResult(req.BaseDir, files), nil
}

// FindFilesByExtension lists every file under BaseDir with the extension.
func (s *Service) FindFilesByExtension(ctx context.Context, req ExtensionRequest) (*FindResult, error) {
	files, err := s.engine.ByExtension(ctx, req.BaseDir, req.Extension)
	if err != nil {
		return nil, err
	}
	return s.findResult(req.BaseDir, files), nil
}

func (s *Service) findResult(baseDir string, files []indexing.FileRecord) *FindResult {
	if files == nil {
		files = []indexing.FileRecord{}
	}
	return &FindResult{Count: len(files), BaseDir: baseDir, Files: files}
}

// SearchFileContent finds literal text in the files under BaseDir.
// Case-insensitive unless CaseInsensitive is false.
func (s *Service) SearchFileContent(ctx context.Context, req ContentRequest) (*search.ContentResult, error) {
	q := search.ContentQuery{
		BaseDir:      req.BaseDir,
		Query:        req.ContentQuery,
		FilePattern:  req.FilePattern,
		Extension:    req.Extension,
		ContextLines: s.opts.ContextLines,
		MaxResults:   s.opts.MaxResults,
	}
	if req.CaseInsensitive != nil {
		q.CaseSensitive = !*req.CaseInsensitive
	}
	if req.ContextLines != nil {
		q.ContextLines = *req.ContextLines
	}
	if req.MaxResults != nil {
		q.MaxResults = *req.MaxResults
	}
	return s.engine.ByContent(ctx, q)
}

// ListAllowedDirectories reports each allowed directory and whether it exists.
func (s *Service) ListAllowedDirectories(ctx context.Context) *DirectoriesResult {
	allowed := s.guard.Allowed()
	dirs := make([]DirectoryInfo, 0, len(allowed))
	for _, a := range allowed {
		info, err := os.Stat(a.Path)
		dirs = append(dirs, DirectoryInfo{
			Path:   a.Path,
			Name:   a.DisplayName(),
			Exists: err == nil && info.IsDir(),
		})
	}
	return &DirectoriesResult{Count: len(dirs), Directories: dirs}
}

// Ping reports that the server is alive
func (s *Service) Ping(ctx context.Context) *PingResult {
	return &PingResult{
		Message: "pong",
		Server:  s.opts.Name,
		Version: s.opts.Version,
		Time:    s.now().UTC().Format(time.RFC3339),
	}
}

// InvalidateIndex drops the cached index of BaseDir so the next search
// performs a full walk.
func (s *Service) InvalidateIndex(ctx context.Context, req PathRequest) (*InvalidateResult, error) {
	abs, err := s.guard.Authorize("invalidateIndex", req.Path)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Invalidate(ctx, abs); err != nil {
		return nil, fserrors.NewFileError("invalidateIndex", abs, err)
	}
	s.logger.Info("index invalidated", zap.String("base_dir", abs))
	return &InvalidateResult{Success: true, BaseDir: abs}, nil
}
