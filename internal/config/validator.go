package config

import (
	"fmt"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap/zapcore"

	"github.com/standardbeagle/fsguard/internal/cache"
	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	positive := func(field string, v int64) {
		if v <= 0 {
			errs = append(errs, fserrors.NewConfigError(field, strconv.FormatInt(v, 10),
				fmt.Errorf("must be positive")))
		}
	}

	positive("index.max_files", int64(c.Index.MaxFiles))
	positive("index.max_dirs", int64(c.Index.MaxDirs))
	positive("index.partial_rescan_threshold", int64(c.Index.PartialRescanThreshold))
	positive("index.max_cache_bytes", c.Index.MaxCacheBytes)
	positive("index.registry_size", int64(c.Index.RegistrySize))
	positive("search.max_results", int64(c.Search.MaxResults))
	positive("search.max_file_size", c.Search.MaxFileSize)
	positive("search.workers", int64(c.Search.Workers))

	if c.Search.ContextLines < 0 {
		errs = append(errs, fserrors.NewConfigError("search.context_lines",
			strconv.Itoa(c.Search.ContextLines), fmt.Errorf("must not be negative")))
	}

	switch c.Cache.Driver {
	case cache.DriverMemory:
		positive("cache.size", int64(c.Cache.Size))
	case cache.DriverDisk, cache.DriverSQLite:
		if c.Cache.Path == "" {
			errs = append(errs, fserrors.NewConfigError("cache.path", "",
				fmt.Errorf("required for the %s driver", c.Cache.Driver)))
		}
	default:
		errs = append(errs, fserrors.NewConfigError("cache.driver", c.Cache.Driver,
			fmt.Errorf("must be one of memory, disk, sqlite")))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fserrors.NewConfigError("logging.level", c.Logging.Level, err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fserrors.NewConfigError("logging.format", c.Logging.Format,
			fmt.Errorf("must be json or console")))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, fserrors.NewConfigError("metrics.address", "",
			fmt.Errorf("required when metrics are enabled")))
	}

	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fserrors.NewConfigError("exclude", pattern, doublestar.ErrBadPattern))
		}
	}

	for i, entry := range c.AllowedPaths {
		if entry.Path == "" {
			errs = append(errs, fserrors.NewConfigError(fmt.Sprintf("allowed_paths[%d]", i), "",
				fmt.Errorf("path is empty")))
		}
	}

	return fserrors.NewMultiError(errs).ErrorOrNil()
}
