// Package pathutil converts between the absolute paths fsguard works with
// internally and the relative paths shown to people.
//
// Results always carry absolute paths; output boundaries such as the CLI
// convert them with this package.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// e.g. different drives on Windows
		return absPath
	}

	// Outside the root the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}

	return relPath
}

// ToRelativeAll returns a copy of items with the path selected by field
// converted with ToRelative. The input slice is not modified.
func ToRelativeAll[T any](items []T, rootDir string, field func(*T) *string) []T {
	if len(items) == 0 {
		return items
	}

	converted := make([]T, len(items))
	copy(converted, items)
	for i := range converted {
		p := field(&converted[i])
		*p = ToRelative(*p, rootDir)
	}
	return converted
}
