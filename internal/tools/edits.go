package tools

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/standardbeagle/fsguard/internal/editing"
	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// InsertLines inserts lines after (default) or before the anchor line.
func (s *Service) InsertLines(ctx context.Context, req InsertRequest) (*EditResult, error) {
	newLines := req.NewLines
	if len(newLines) == 0 && req.Content != "" {
		newLines = strings.Split(req.Content, "\n")
	}
	after := true
	if req.After != nil {
		after = *req.After
	}

	anchor := editing.Reference{Line: req.LineNumber, Content: req.ReferenceContent}
	res, err := s.editor.Insert(req.Path, anchor, newLines, req.QuickHash, after)
	return s.editResult(ctx, res, err)
}

// DeleteLines removes an inclusive line range. The reference content is
// checked against startLine, or endLine when ReferenceIsStart is false.
func (s *Service) DeleteLines(ctx context.Context, req DeleteRequest) (*EditResult, error) {
	refLine := req.StartLine
	if req.ReferenceIsStart != nil && !*req.ReferenceIsStart {
		refLine = req.EndLine
	}

	ref := &editing.Reference{Line: refLine, Content: req.ReferenceContent}
	res, err := s.editor.DeleteRange(req.Path, req.StartLine, req.EndLine, ref, req.QuickHash)
	return s.editResult(ctx, res, err)
}

// ReplaceLine replaces one line with exactly one new line.
func (s *Service) ReplaceLine(ctx context.Context, req ReplaceRequest) (*EditResult, error) {
	if _, err := s.guard.Authorize(editing.OpReplace, req.Path); err != nil {
		return nil, err
	}
	if strings.Contains(req.NewContent, "\n") {
		return nil, fserrors.NewInputError("newContent", "single_line",
			"newContent must not contain line feeds; use insertLines for additional lines")
	}

	ref := &editing.Reference{Line: req.LineNumber, Content: req.ReferenceContent}
	res, err := s.editor.ReplaceRange(req.Path, req.LineNumber, req.LineNumber, ref,
		[]string{req.NewContent}, req.QuickHash)
	return s.editResult(ctx, res, err)
}

// editResult attaches a fresh snapshot to a committed edit. A snapshot that
// cannot be taken is omitted; the edit itself already succeeded.
func (s *Service) editResult(ctx context.Context, res *editing.Result, err error) (*EditResult, error) {
	if err != nil {
		return nil, err
	}
	out := &EditResult{
		Success:       res.Success,
		Path:          res.Path,
		LinesAffected: res.LinesAffected,
		TotalLines:    res.TotalLines,
		Checksum:      res.Checksum,
		QuickHash:     res.QuickHash,
	}
	snap, err := s.snapshot(ctx, "snapshot", res.Path)
	if err != nil {
		s.logger.Debug("post-edit snapshot skipped", zap.String("path", res.Path), zap.Error(err))
		return out, nil
	}
	out.UpdatedFileSnapshot = snap
	return out, nil
}
