package editing

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/standardbeagle/fsguard/internal/core"
	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/security"
)

// Edit operations, used in errors, logs and metrics
const (
	OpInsert  = "insertLines"
	OpDelete  = "deleteLines"
	OpReplace = "replaceLines"
)

// Observer receives the outcome of every edit attempt.
type Observer interface {
	ObserveEdit(op string, err error)
}

// Reference is the caller's claim about the content of a 1-based line.
type Reference struct {
	Line    int
	Content string
}

// Result describes a committed edit. QuickHash comes from re-statting the
// written file and can be passed straight to the next edit.
type Result struct {
	Success       bool   `json:"success"`
	Path          string `json:"path"`
	LinesAffected int    `json:"linesAffected"`
	TotalLines    int    `json:"totalLines"`
	Checksum      string `json:"checksum"`
	QuickHash     string `json:"quickHash"`
}

// Options configure a LineEditor
type Options struct {
	MaxFileSize int64
	Logger      *zap.Logger
	Observer    Observer
}

// LineEditor applies optimistic-locked, atomic line edits to single files.
//
// Every operation checks, in order: the file exists, its quick hash equals the
// one the caller read, the reference line still holds the claimed content, and
// the line range is valid. Only then is the edit applied and committed.
type LineEditor struct {
	guard     *security.PathGuard
	validator *security.FileValidator
	writer    *AtomicWriter
	logger    *zap.Logger
	observer  Observer
}

// NewLineEditor creates an editor confined by guard
func NewLineEditor(guard *security.PathGuard, opts Options) *LineEditor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineEditor{
		guard:     guard,
		validator: security.NewFileValidator(opts.MaxFileSize),
		writer:    NewAtomicWriter(),
		logger:    logger,
		observer:  opts.Observer,
	}
}

// Writer exposes the atomic writer so file creation shares it
func (e *LineEditor) Writer() *AtomicWriter {
	return e.writer
}

// Insert places newLines before the anchor line, or after it when after is true.
func (e *LineEditor) Insert(path string, anchor Reference, newLines []string, expectedQuickHash string, after bool) (*Result, error) {
	abs, err := e.guard.Authorize(OpInsert, path)
	if err != nil {
		return nil, e.done(OpInsert, path, err)
	}
	if err := requireLine("line", anchor.Line); err != nil {
		return nil, e.done(OpInsert, abs, err)
	}
	if len(newLines) == 0 {
		return nil, e.done(OpInsert, abs, fserrors.NewInputError("content", "empty_payload", "at least one line is required"))
	}

	return e.mutate(OpInsert, abs, expectedQuickHash, &anchor, func(lines Lines) (Lines, int, error) {
		at := anchor.Line - 1
		if after {
			at++
		}
		return lines.Insert(at, newLines...), len(newLines), nil
	})
}

// DeleteRange removes the inclusive 1-based range [startLine, endLine].
// ref is optional; when set, its line must hold the claimed content.
func (e *LineEditor) DeleteRange(path string, startLine, endLine int, ref *Reference, expectedQuickHash string) (*Result, error) {
	abs, err := e.guard.Authorize(OpDelete, path)
	if err != nil {
		return nil, e.done(OpDelete, path, err)
	}
	if err := requireRange(startLine, endLine); err != nil {
		return nil, e.done(OpDelete, abs, err)
	}

	return e.mutate(OpDelete, abs, expectedQuickHash, ref, func(lines Lines) (Lines, int, error) {
		start, end, err := toRange(lines, startLine, endLine)
		if err != nil {
			return nil, 0, err
		}
		return lines.Remove(start, end), end - start + 1, nil
	})
}

// ReplaceRange replaces the inclusive 1-based range [startLine, endLine] with
// replacement, which may have a different number of lines.
func (e *LineEditor) ReplaceRange(path string, startLine, endLine int, ref *Reference, replacement []string, expectedQuickHash string) (*Result, error) {
	abs, err := e.guard.Authorize(OpReplace, path)
	if err != nil {
		return nil, e.done(OpReplace, path, err)
	}
	if err := requireRange(startLine, endLine); err != nil {
		return nil, e.done(OpReplace, abs, err)
	}

	return e.mutate(OpReplace, abs, expectedQuickHash, ref, func(lines Lines) (Lines, int, error) {
		start, end, err := toRange(lines, startLine, endLine)
		if err != nil {
			return nil, 0, err
		}
		return lines.Replace(start, end, replacement...), end - start + 1, nil
	})
}

type editFunc func(lines Lines) (Lines, int, error)

// mutate runs the checks and the commit on abs, which must already be authorized.
func (e *LineEditor) mutate(op, abs, expectedQuickHash string, ref *Reference, apply editFunc) (*Result, error) {
	// 1. existence, metadata only
	info, err := e.validator.ValidateStat(op, abs)
	if err != nil {
		return nil, e.done(op, abs, err)
	}

	// 2. optimistic lock, before any content is read
	if actual := core.QuickHashInfo(abs, info); actual != expectedQuickHash {
		return nil, e.done(op, abs, fserrors.NewConflictError(abs, expectedQuickHash, actual))
	}

	// 3. content
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, e.done(op, abs, fserrors.NewFileError(op, abs, err))
	}
	lines := SplitLines(string(content))

	// 4. reference line
	if ref != nil {
		if err := checkReference(abs, lines, *ref); err != nil {
			return nil, e.done(op, abs, err)
		}
	}

	// 5. range validity and the edit itself
	updated, affected, err := apply(lines)
	if err != nil {
		return nil, e.done(op, abs, err)
	}

	// 6. atomic commit; nothing after this point may fail the call
	data := []byte(updated.Join())
	written, err := e.writer.Replace(abs, data, info.Mode().Perm())
	if err != nil {
		return nil, e.done(op, abs, fserrors.NewFileError(op, abs, err))
	}

	result := &Result{
		Success:       true,
		Path:          abs,
		LinesAffected: affected,
		// An empty file still reads back as one empty line.
		TotalLines: max(updated.Len(), 1),
		Checksum:   core.Checksum(data),
		QuickHash:  core.QuickHashInfo(abs, written),
	}
	e.logger.Info("file edited",
		zap.String("op", op),
		zap.String("path", abs),
		zap.Int("lines_affected", affected),
		zap.Int("total_lines", result.TotalLines))
	e.done(op, abs, nil)
	return result, nil
}

func (e *LineEditor) done(op, path string, err error) error {
	if err != nil {
		e.logger.Debug("edit rejected",
			zap.String("op", op),
			zap.String("path", path),
			zap.String("kind", string(fserrors.TypeOf(err))),
			zap.Error(err))
	}
	if e.observer != nil {
		e.observer.ObserveEdit(op, err)
	}
	return err
}

func checkReference(path string, lines Lines, ref Reference) error {
	i := ref.Line - 1
	if !lines.InRange(i) {
		return fserrors.NewInputError("line", "line_out_of_range",
			fmt.Sprintf("line %d does not exist, file has %d lines", ref.Line, lines.Len()))
	}
	if lines[i] != ref.Content {
		return fserrors.NewStaleReferenceError(path, ref.Line, ref.Content, lines[i])
	}
	return nil
}

// toRange converts a 1-based inclusive range to 0-based, requiring
// 0 <= start <= end < Len.
func toRange(lines Lines, startLine, endLine int) (int, int, error) {
	start, end := startLine-1, endLine-1
	if !lines.InRange(start) || !lines.InRange(end) || start > end {
		return 0, 0, fserrors.NewInputError("range", "line_out_of_range",
			fmt.Sprintf("lines %d-%d are outside the file, which has %d lines", startLine, endLine, lines.Len()))
	}
	return start, end, nil
}

func requireLine(field string, line int) error {
	if line < 1 {
		return fserrors.NewInputError(field, "line_number", fmt.Sprintf("line numbers start at 1, got %d", line))
	}
	return nil
}

func requireRange(startLine, endLine int) error {
	if err := requireLine("startLine", startLine); err != nil {
		return err
	}
	if err := requireLine("endLine", endLine); err != nil {
		return err
	}
	if endLine < startLine {
		return fserrors.NewInputError("endLine", "line_range",
			fmt.Sprintf("endLine %d is before startLine %d", endLine, startLine))
	}
	return nil
}
