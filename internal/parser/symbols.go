package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"go.uber.org/zap"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// Extractor lists the external symbols a source file depends on.
type Extractor interface {
	Language() string
	Extensions() []string
	Extract(content []byte) ([]string, error)
}

// Registry maps file extensions to extractors. Files whose extension has no
// extractor are simply not enriched.
type Registry struct {
	byExt  map[string]Extractor
	logger *zap.Logger
}

// NewRegistry creates a registry with the built-in PHP and Go extractors
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{byExt: make(map[string]Extractor), logger: logger}
	r.Register(NewPHPExtractor())
	r.Register(NewGoExtractor())
	return r
}

// Register adds e for each of its extensions, replacing earlier registrations
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor responsible for path
func (r *Registry) For(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Supports reports whether path can be enriched
func (r *Registry) Supports(path string) bool {
	_, ok := r.For(path)
	return ok
}

// UsedSymbols extracts the symbols of path. A failed result means the file
// could not be parsed; callers log it and carry on without enrichment.
func (r *Registry) UsedSymbols(path string, content []byte) fserrors.Result[[]string] {
	e, ok := r.For(path)
	if !ok {
		return fserrors.Fail[[]string](fserrors.NewInputError("path", "unsupported_language",
			fmt.Sprintf("no symbol extractor for %s", filepath.Ext(path))))
	}

	symbols, err := e.Extract(content)
	if err != nil {
		r.logger.Warn("symbol extraction failed",
			zap.String("path", path),
			zap.String("language", e.Language()),
			zap.Error(err))
		return fserrors.Fail[[]string](err)
	}
	return fserrors.Ok(symbols)
}

// parserPool hands out tree-sitter parsers for one grammar. Parsers are not
// safe for concurrent use, so each Extract call takes its own.
type parserPool struct {
	language *tree_sitter.Language
	pool     sync.Pool
}

func newParserPool(language *tree_sitter.Language) *parserPool {
	p := &parserPool{language: language}
	p.pool.New = func() any {
		parser := tree_sitter.NewParser()
		if err := parser.SetLanguage(language); err != nil {
			parser.Close()
			return nil
		}
		return parser
	}
	return p
}

func (p *parserPool) parse(content []byte) (*tree_sitter.Tree, error) {
	parser, _ := p.pool.Get().(*tree_sitter.Parser)
	if parser == nil {
		return nil, fmt.Errorf("grammar could not be loaded")
	}
	defer p.pool.Put(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse produced no tree")
	}
	return tree, nil
}

// symbolSet deduplicates names and returns them sorted.
type symbolSet map[string]struct{}

func (s symbolSet) add(name string) {
	if name != "" {
		s[name] = struct{}{}
	}
}

func (s symbolSet) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
