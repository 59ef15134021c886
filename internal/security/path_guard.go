package security

import (
	"os"
	"path/filepath"
	"strings"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// AllowedPath is one root of the sandbox. Name is optional and only used for display.
type AllowedPath struct {
	Path string `json:"path" toml:"path"`
	Name string `json:"name,omitempty" toml:"name"`
}

// DisplayName returns Name, falling back to the base name of Path.
func (a AllowedPath) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return filepath.Base(filepath.Clean(a.Path))
}

// PathGuard confines paths to a fixed allow-list of directory trees.
// The list is copied on construction and never changes afterwards.
type PathGuard struct {
	allowed []AllowedPath
}

// NewPathGuard creates a guard over the given roots
func NewPathGuard(allowed []AllowedPath) *PathGuard {
	list := make([]AllowedPath, len(allowed))
	copy(list, allowed)
	return &PathGuard{allowed: list}
}

// Allowed returns a copy of the configured roots
func (g *PathGuard) Allowed() []AllowedPath {
	list := make([]AllowedPath, len(g.allowed))
	copy(list, g.allowed)
	return list
}

// IsAllowed reports whether candidate resolves inside one of the allowed roots.
func (g *PathGuard) IsAllowed(candidate string) bool {
	return IsAllowed(g.roots(), candidate)
}

// Authorize returns the canonical form of candidate, with symlinks resolved,
// or an AccessError when it resolves outside the allowed roots. Callers act on
// the returned path so the checked path and the touched path are the same.
func (g *PathGuard) Authorize(op, candidate string) (string, error) {
	if candidate == "" {
		return "", fserrors.NewInputError("path", "required", "path is required")
	}
	resolved, ok := Resolve(g.roots(), candidate)
	if !ok {
		return "", fserrors.NewAccessError(op, candidate)
	}
	return resolved, nil
}

func (g *PathGuard) roots() []string {
	roots := make([]string, len(g.allowed))
	for i, a := range g.allowed {
		roots[i] = a.Path
	}
	return roots
}

// IsAllowed reports whether candidate, after resolving symlinks, equals or lies
// under one of the roots. Roots that cannot be resolved are skipped.
// A candidate that does not exist yet is resolved through its parent directory.
func IsAllowed(roots []string, candidate string) bool {
	_, ok := Resolve(roots, candidate)
	return ok
}

// Resolve returns the canonical path of candidate when it lies under one of roots.
func Resolve(roots []string, candidate string) (string, bool) {
	resolved, ok := canonicalize(candidate)
	if !ok {
		return "", false
	}

	for _, root := range roots {
		canonicalRoot, err := resolve(root)
		if err != nil {
			continue
		}
		if within(canonicalRoot, resolved) {
			return resolved, true
		}
	}
	return "", false
}

func canonicalize(candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	if resolved, err := resolve(candidate); err == nil {
		return resolved, true
	}

	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", false
	}
	parent, err := resolve(filepath.Dir(abs))
	if err != nil {
		return "", false
	}
	return filepath.Join(parent, filepath.Base(abs)), true
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// within uses the separator as boundary so /var/www-evil is not under /var/www.
func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, prefix)
}
