package indexing

// Index size limits. A walk that reaches either cap produces a degraded index.
const (
	DefaultMaxFiles = 50000
	DefaultMaxDirs  = 10000

	// More changed directories than this trigger a full rebuild instead of a partial rescan.
	DefaultPartialRescanThreshold = 10

	// Indexes whose estimated footprint exceeds this are not persisted.
	DefaultMaxCacheBytes = 50 * 1024 * 1024

	// DefaultRegistrySize bounds the number of base directories kept in memory.
	DefaultRegistrySize = 128
)

// Footprint estimate used for the persistence cap
const (
	estimatedBytesPerFile = 200
	estimatedBytesPerDir  = 150
)

// cacheKeyPrefix namespaces persisted indexes in a shared cache store
const cacheKeyPrefix = "treeindex"
