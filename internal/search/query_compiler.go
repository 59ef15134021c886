package search

import (
	"fmt"
	"regexp"
	"strings"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// Rejection rules reported in InputError.Rule
const (
	RuleEmpty        = "empty"
	RuleTooLong      = "too_long"
	RuleTooManyStars = "too_many_wildcards"
	RuleDotComponent = "dot_component"
	RuleDoubleSlash  = "double_separator"
	RuleCharacterSet = "character_set"
	RuleDanglingDot  = "dangling_dot"
)

const (
	queryField = "query"

	// A wildcard never crosses a path separator.
	wildcardReplacement = `[^/]*`
)

var (
	dotComponentRe = regexp.MustCompile(`(^|/)\.\.?($|/)`)
	allowedCharsRe = regexp.MustCompile(`^[A-Za-z0-9_\-.*/@$ ]+$`)
)

// CompileQuery validates a filename search token and compiles it into a
// case-insensitive pattern where '*' matches within one path segment.
// Every check runs before any pattern is built.
func CompileQuery(raw string) (*regexp.Regexp, error) {
	query := strings.TrimSpace(raw)

	if query == "" {
		return nil, reject(RuleEmpty, "query must not be empty")
	}
	if len(query) > MaxQueryLength {
		return nil, reject(RuleTooLong, fmt.Sprintf("query is %d characters, maximum is %d", len(query), MaxQueryLength))
	}
	if n := strings.Count(query, "*"); n > MaxWildcards {
		return nil, reject(RuleTooManyStars, fmt.Sprintf("query has %d wildcards, maximum is %d", n, MaxWildcards))
	}
	if dotComponentRe.MatchString(query) {
		return nil, reject(RuleDotComponent, "'.' and '..' path components are not allowed")
	}
	if strings.Contains(query, "//") {
		return nil, reject(RuleDoubleSlash, "doubled path separators are not allowed")
	}
	if !allowedCharsRe.MatchString(query) {
		return nil, reject(RuleCharacterSet, "only letters, digits, spaces and _ - . * / @ $ are allowed")
	}
	if danglingDot(query) {
		return nil, reject(RuleDanglingDot, "every '.' must be followed by a letter, digit or underscore")
	}

	escaped := regexp.QuoteMeta(query)
	pattern := strings.ReplaceAll(escaped, `\*`, wildcardReplacement)
	return regexp.Compile("(?i)" + pattern)
}

// CompileLiteral builds the content search pattern: the text is matched
// literally, never as a wildcard or regex expression.
func CompileLiteral(text string, caseSensitive bool) (*regexp.Regexp, error) {
	if text == "" {
		return nil, reject(RuleEmpty, "query must not be empty")
	}
	pattern := regexp.QuoteMeta(text)
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func danglingDot(query string) bool {
	for i := 0; i < len(query); i++ {
		if query[i] != '.' {
			continue
		}
		if i+1 >= len(query) || !isWordByte(query[i+1]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func reject(rule, message string) error {
	return fserrors.NewInputError(queryField, rule, message)
}
