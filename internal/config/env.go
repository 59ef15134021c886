package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// Environment variables understood by Load
const (
	EnvAllowedPaths   = "ALLOWED_PATHS"
	EnvCacheDriver    = "FSGUARD_CACHE_DRIVER"
	EnvCachePath      = "FSGUARD_CACHE_PATH"
	EnvLogLevel       = "FSGUARD_LOG_LEVEL"
	EnvLogFormat      = "FSGUARD_LOG_FORMAT"
	EnvLogOutput      = "FSGUARD_LOG_OUTPUT"
	EnvFollowSymlinks = "FSGUARD_FOLLOW_SYMLINKS"
	EnvMaxFileSize    = "FSGUARD_MAX_FILE_SIZE"
	EnvSearchWorkers  = "FSGUARD_SEARCH_WORKERS"
	EnvMetricsEnabled = "FSGUARD_METRICS_ENABLED"
	EnvMetricsAddress = "FSGUARD_METRICS_ADDRESS"
)

// environment merges projectDir/.env with the process environment, which wins.
func environment(projectDir string) (map[string]string, error) {
	env := make(map[string]string)
	if projectDir != "" {
		path := filepath.Join(projectDir, EnvFileName)
		values, err := godotenv.Read(path)
		switch {
		case err == nil:
			env = values
		case !os.IsNotExist(err):
			return nil, fserrors.NewConfigError("file", path, err)
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}

// applyEnv overlays environment values. ALLOWED_PATHS replaces the allowed
// paths from configuration files.
func applyEnv(cfg *Config, env map[string]string) error {
	if raw, ok := env[EnvAllowedPaths]; ok && strings.TrimSpace(raw) != "" {
		cfg.AllowedPaths = ParseAllowedPaths(raw)
	}
	if v := env[EnvCacheDriver]; v != "" {
		cfg.Cache.Driver = v
	}
	if v := env[EnvCachePath]; v != "" {
		cfg.Cache.Path = v
	}
	if v := env[EnvLogLevel]; v != "" {
		cfg.Logging.Level = v
	}
	if v := env[EnvLogFormat]; v != "" {
		cfg.Logging.Format = v
	}
	if v := env[EnvLogOutput]; v != "" {
		cfg.Logging.OutputPath = v
	}
	if v := env[EnvFollowSymlinks]; v != "" {
		cfg.Index.FollowSymlinks = parseBool(v)
	}
	if v := env[EnvMetricsEnabled]; v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := env[EnvMetricsAddress]; v != "" {
		cfg.Metrics.Address = v
	}
	if v := env[EnvMaxFileSize]; v != "" {
		size, err := parseSize(v)
		if err != nil {
			return fserrors.NewConfigError(EnvMaxFileSize, v, err)
		}
		cfg.Search.MaxFileSize = size
	}
	if v := env[EnvSearchWorkers]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fserrors.NewConfigError(EnvSearchWorkers, v, err)
		}
		cfg.Search.Workers = n
	}
	return nil
}
