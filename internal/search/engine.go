package search

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/indexing"
	"github.com/standardbeagle/fsguard/internal/security"
)

var extensionRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Observer receives the duration and outcome of each search.
type Observer interface {
	ObserveSearch(kind string, duration time.Duration, err error)
}

// Options configure an Engine
type Options struct {
	Workers     int
	MaxFileSize int64
	Logger      *zap.Logger
	Observer    Observer
}

// Engine runs filename and content searches over indexed base directories.
type Engine struct {
	guard    *security.PathGuard
	registry *indexing.Registry
	detector *BinaryDetector
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates a search engine
func NewEngine(guard *security.PathGuard, registry *indexing.Registry, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		guard:    guard,
		registry: registry,
		detector: NewBinaryDetector(),
		opts:     opts,
		logger:   logger,
	}
}

// ContentQuery describes a content search. Zero values select the defaults:
// case-insensitive matching and DefaultMaxResults. ContextLines is used as given.
type ContentQuery struct {
	BaseDir       string
	Query         string
	FilePattern   string
	Extension     string
	CaseSensitive bool
	ContextLines  int
	MaxResults    int
}

// ContextLine is one line of the window around a match
type ContextLine struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	IsMatch bool   `json:"isMatch"`
}

// LineMatch is one matching line with its context window
type LineMatch struct {
	Line    int           `json:"line"`
	Content string        `json:"content"`
	Context []ContextLine `json:"context"`
}

// FileMatches groups the matches of one file
type FileMatches struct {
	Path       string      `json:"path"`
	QuickHash  string      `json:"quickHash"`
	MatchCount int         `json:"matchCount"`
	Matches    []LineMatch `json:"matches"`
}

// ContentResult is the outcome of a content search. Count is the number of
// files with at least one match.
type ContentResult struct {
	Count         int           `json:"count"`
	ContentQuery  string        `json:"contentQuery"`
	FilesSearched int           `json:"filesSearched"`
	Results       []FileMatches `json:"results"`
}

// ByFilename returns files under baseDir whose relative path matches query.
func (e *Engine) ByFilename(ctx context.Context, baseDir, query, extension string) (records []indexing.FileRecord, err error) {
	defer e.observe("filename", time.Now(), &err)

	idx, err := e.index("findFilesByName", baseDir)
	if err != nil {
		return nil, err
	}
	pattern, err := CompileQuery(query)
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, pattern, extension)
}

// ByExtension returns files under baseDir with the given alphanumeric extension.
func (e *Engine) ByExtension(ctx context.Context, baseDir, extension string) (records []indexing.FileRecord, err error) {
	defer e.observe("extension", time.Now(), &err)

	idx, err := e.index("findFilesByExtension", baseDir)
	if err != nil {
		return nil, err
	}
	extension = strings.TrimPrefix(strings.TrimSpace(extension), ".")
	if !extensionRe.MatchString(extension) {
		return nil, fserrors.NewInputError("extension", "character_set", "extension must be alphanumeric")
	}
	return idx.ByExtension(ctx, extension)
}

// ByContent scans candidate files line by line for a literal substring.
// Scanning stops once MaxResults files have matched; matches within a file are not capped.
func (e *Engine) ByContent(ctx context.Context, q ContentQuery) (result *ContentResult, err error) {
	defer e.observe("content", time.Now(), &err)

	idx, err := e.index("searchFileContent", q.BaseDir)
	if err != nil {
		return nil, err
	}
	if q.Query == "" {
		return nil, fserrors.NewInputError("contentQuery", RuleEmpty, "content query must not be empty")
	}
	pattern, err := CompileLiteral(q.Query, q.CaseSensitive)
	if err != nil {
		return nil, err
	}
	contextLines := max(q.ContextLines, 0)
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	candidates, err := e.candidates(ctx, idx, q)
	if err != nil {
		return nil, err
	}

	result = &ContentResult{
		ContentQuery:  q.Query,
		FilesSearched: len(candidates),
		Results:       make([]FileMatches, 0),
	}

	// Batches are scanned concurrently but merged in candidate order, so the
	// result is the same as a sequential scan that stops at maxResults.
	batch := e.opts.Workers
	for start := 0; start < len(candidates) && len(result.Results) < maxResults; start += batch {
		chunk := candidates[start:min(start+batch, len(candidates))]
		found := make([]*FileMatches, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for i, rec := range chunk {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				found[i] = e.scanFile(rec, pattern, contextLines)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, fm := range found {
			if fm == nil {
				continue
			}
			result.Results = append(result.Results, *fm)
			if len(result.Results) >= maxResults {
				break
			}
		}
	}
	result.Count = len(result.Results)
	return result, nil
}

func (e *Engine) candidates(ctx context.Context, idx *indexing.TreeIndex, q ContentQuery) ([]indexing.FileRecord, error) {
	var (
		records []indexing.FileRecord
		err     error
	)
	switch {
	case q.FilePattern != "":
		pattern, cerr := CompileQuery(q.FilePattern)
		if cerr != nil {
			return nil, cerr
		}
		records, err = idx.Search(ctx, pattern, q.Extension)
	case q.Extension != "":
		records, err = idx.ByExtension(ctx, q.Extension)
	default:
		records, err = idx.All(ctx, nil)
	}
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, rec := range records {
		if int64(rec.Size) > e.opts.MaxFileSize {
			continue
		}
		// The index may predate a link being repointed; re-check before reading.
		if !e.guard.IsAllowed(rec.Path) {
			continue
		}
		if !e.detector.IsText(rec.Path) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

// scanFile returns nil when the file has no match or cannot be read.
func (e *Engine) scanFile(rec indexing.FileRecord, pattern *regexp.Regexp, contextLines int) *FileMatches {
	content, err := os.ReadFile(rec.Path)
	if err != nil {
		e.logger.Debug("skipping unreadable file", zap.String("path", rec.Path), zap.Error(err))
		return nil
	}
	lines := strings.Split(string(content), "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var matches []LineMatch
	for i, line := range lines {
		if !pattern.MatchString(line) {
			continue
		}
		matches = append(matches, LineMatch{
			Line:    i + 1,
			Content: line,
			Context: contextWindow(lines, i, contextLines),
		})
	}
	if len(matches) == 0 {
		return nil
	}
	return &FileMatches{
		Path:       rec.Path,
		QuickHash:  rec.QuickHash,
		MatchCount: len(matches),
		Matches:    matches,
	}
}

// contextWindow returns lines[i-n : i+n] clamped to the file, 1-based.
func contextWindow(lines []string, i, n int) []ContextLine {
	start := max(0, i-n)
	end := min(len(lines)-1, i+n)
	window := make([]ContextLine, 0, end-start+1)
	for j := start; j <= end; j++ {
		window = append(window, ContextLine{Line: j + 1, Content: lines[j], IsMatch: j == i})
	}
	return window
}

// index authorizes baseDir and returns its TreeIndex. The directory must exist.
func (e *Engine) index(op, baseDir string) (*indexing.TreeIndex, error) {
	abs, err := e.guard.Authorize(op, baseDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fserrors.NewFileError(op, abs, err)
	}
	if !info.IsDir() {
		return nil, fserrors.NewInputError("baseDir", "not_a_directory", fmt.Sprintf("%s is not a directory", abs))
	}
	return e.registry.For(abs), nil
}

func (e *Engine) observe(kind string, start time.Time, err *error) {
	if e.opts.Observer != nil {
		e.opts.Observer.ObserveSearch(kind, time.Since(start), *err)
	}
}
