package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache drivers
const (
	DriverMemory = "memory"
	DriverDisk   = "disk"
	DriverSQLite = "sqlite"
)

// DefaultSize is the entry capacity used when a driver is opened with size <= 0.
const DefaultSize = 256

// Store is a key-value cache. Put with a non-positive ttl behaves like Forever.
// Implementations are safe for concurrent use and atomic per key.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Put(ctx context.Context, key string, value V, ttl time.Duration) error
	Forever(ctx context.Context, key string, value V) error
	Forget(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a Store driver
type Config struct {
	Driver string // memory, disk or sqlite
	Path   string // directory for disk, database file for sqlite
	Size   int    // entry capacity for memory
}

// Open creates the store selected by cfg.Driver
func Open[V any](cfg Config) (Store[V], error) {
	var (
		store Store[V]
		err   error
	)
	switch cfg.Driver {
	case "", DriverMemory:
		store, err = NewMemoryStore[V](cfg.Size)
	case DriverDisk:
		store, err = NewDiskStore[V](cfg.Path)
	case DriverSQLite:
		store, err = NewSQLiteStore[V](cfg.Path)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Key derives a fixed-width cache key from an arbitrary string, e.g. a directory path.
func Key(prefix, value string) string {
	return prefix + ":" + strconv.FormatUint(xxhash.Sum64String(value), 16)
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func expired(expiresAt time.Time) bool {
	return !expiresAt.IsZero() && time.Now().After(expiresAt)
}
