package tools

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	edlib "github.com/hbollon/go-edlib"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

const (
	maxSuggestions = 3
	// maxSuggestionDistance bounds how different a sibling name may be
	maxSuggestionDistance = 3
	maxSiblingsScanned    = 1000
)

// withSuggestions adds "did you mean" sibling names to NotFound errors
func (s *Service) withSuggestions(err error, path string) error {
	if !fserrors.Is(err, fserrors.ErrorTypeNotFound) {
		return err
	}
	var fileErr *fserrors.FileError
	if !errors.As(err, &fileErr) {
		return err
	}
	if names := suggestSiblings(path); len(names) > 0 {
		return fileErr.WithSuggestions(names)
	}
	return err
}

// suggestSiblings ranks the entries of path's directory by Levenshtein
// distance to its base name, case-insensitively.
func suggestSiblings(path string) []string {
	dir, want := filepath.Split(path)
	f, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer f.Close()
	names, err := f.Readdirnames(maxSiblingsScanned)
	if err != nil && len(names) == 0 {
		return nil
	}

	type candidate struct {
		path     string
		distance int
	}
	lowered := strings.ToLower(want)
	var candidates []candidate
	for _, name := range names {
		d := edlib.LevenshteinDistance(lowered, strings.ToLower(name))
		if d <= maxSuggestionDistance {
			candidates = append(candidates, candidate{path: filepath.Join(dir, name), distance: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].path < candidates[j].path
	})

	out := make([]string, 0, maxSuggestions)
	for _, c := range candidates[:min(len(candidates), maxSuggestions)] {
		out = append(out, c.path)
	}
	return out
}
