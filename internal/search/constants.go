package search

// Content search defaults
const (
	DefaultContextLines = 2
	DefaultMaxResults   = 50

	// DefaultWorkers is the number of files scanned concurrently by content search.
	DefaultWorkers = 4

	// DefaultMaxFileSize skips larger files during content search.
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// Query limits enforced by CompileQuery
const (
	MaxQueryLength = 200
	MaxWildcards   = 5
)

// sniffLen is the number of leading bytes inspected for binary classification
const sniffLen = 512
