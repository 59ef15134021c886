package editing

import "strings"

// Lines is an ordered sequence of file lines indexed from 0. Callers work
// with 1-based line numbers; LineEditor converts at its boundary only.
// Operations return new sequences and never modify the receiver.
type Lines []string

// SplitLines splits content on the line-feed character. A trailing newline
// yields a final empty line, so Join(SplitLines(s)) == s.
func SplitLines(content string) Lines {
	return Lines(strings.Split(content, "\n"))
}

// Join reassembles the content with line feeds
func (l Lines) Join() string {
	return strings.Join(l, "\n")
}

// Len returns the number of lines
func (l Lines) Len() int {
	return len(l)
}

// InRange reports whether i is a valid index
func (l Lines) InRange(i int) bool {
	return i >= 0 && i < len(l)
}

// Insert returns a sequence with items placed before index i (0 <= i <= Len).
func (l Lines) Insert(i int, items ...string) Lines {
	out := make(Lines, 0, len(l)+len(items))
	out = append(out, l[:i]...)
	out = append(out, items...)
	return append(out, l[i:]...)
}

// Remove returns a sequence without the inclusive range [start, end].
func (l Lines) Remove(start, end int) Lines {
	return l.Replace(start, end)
}

// Replace returns a sequence where the inclusive range [start, end] is
// replaced by items. The number of items may differ from the range length.
func (l Lines) Replace(start, end int, items ...string) Lines {
	out := make(Lines, 0, len(l)-(end-start+1)+len(items))
	out = append(out, l[:start]...)
	out = append(out, items...)
	return append(out, l[end+1:]...)
}

// Map returns the lines keyed by 1-based line number
func (l Lines) Map() map[int]string {
	m := make(map[int]string, len(l))
	for i, line := range l {
		m[i+1] = line
	}
	return m
}
