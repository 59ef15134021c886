// Package tools implements the file tool operations exposed to agents:
// discovery, reading, creation and line-level editing inside the allowed
// directories.
package tools

import (
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/fsguard/internal/editing"
	"github.com/standardbeagle/fsguard/internal/indexing"
	"github.com/standardbeagle/fsguard/internal/parser"
	"github.com/standardbeagle/fsguard/internal/search"
	"github.com/standardbeagle/fsguard/internal/security"
)

// Options configure a Service
type Options struct {
	Name         string
	Version      string
	MaxFileSize  int64
	ContextLines int
	MaxResults   int
	Logger       *zap.Logger
}

// Service wires the guard, index, search engine, editor and symbol
// extractors into the tool operations. It holds no per-call state.
type Service struct {
	guard     *security.PathGuard
	registry  *indexing.Registry
	engine    *search.Engine
	editor    *editing.LineEditor
	symbols   *parser.Registry
	validator *security.FileValidator
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a tool service. symbols may be nil to disable enrichment.
func NewService(guard *security.PathGuard, registry *indexing.Registry, engine *search.Engine,
	editor *editing.LineEditor, symbols *parser.Registry, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = search.DefaultMaxFileSize
	}
	if opts.ContextLines < 0 {
		opts.ContextLines = search.DefaultContextLines
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = search.DefaultMaxResults
	}
	return &Service{
		guard:     guard,
		registry:  registry,
		engine:    engine,
		editor:    editor,
		symbols:   symbols,
		validator: security.NewFileValidator(opts.MaxFileSize),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Guard returns the path guard the service enforces
func (s *Service) Guard() *security.PathGuard {
	return s.guard
}
