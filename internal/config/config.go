package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fsguard/internal/cache"
	"github.com/standardbeagle/fsguard/internal/security"
)

// File names looked up in the home and project directories
const (
	KDLFileName  = ".fsguard.kdl"
	TOMLFileName = ".fsguard.toml"
	EnvFileName  = ".env"
)

const (
	DefaultMaxFiles               = 50000
	DefaultMaxDirs                = 10000
	DefaultPartialRescanThreshold = 10
	DefaultMaxCacheBytes          = 50 * 1024 * 1024
	DefaultRegistrySize           = 128
	DefaultCacheSize              = 256
	DefaultContextLines           = 2
	DefaultMaxResults             = 50
	DefaultMaxFileSize            = 10 * 1024 * 1024
	DefaultWorkers                = 4
	DefaultMetricsAddress         = ":9464"
)

type Config struct {
	AllowedPaths []security.AllowedPath `toml:"allowed_paths"`
	Index        Index                  `toml:"index"`
	Exclude      []string               `toml:"exclude"`
	Cache        Cache                  `toml:"cache"`
	Search       Search                 `toml:"search"`
	Logging      Logging                `toml:"logging"`
	Metrics      Metrics                `toml:"metrics"`
}

type Index struct {
	MaxFiles               int   `toml:"max_files"`
	MaxDirs                int   `toml:"max_dirs"`
	PartialRescanThreshold int   `toml:"partial_rescan_threshold"`
	MaxCacheBytes          int64 `toml:"max_cache_bytes"`
	FollowSymlinks         bool  `toml:"follow_symlinks"`
	RegistrySize           int   `toml:"registry_size"` // TreeIndex instances kept in memory
}

type Cache struct {
	Driver string `toml:"driver"` // memory, disk or sqlite
	Path   string `toml:"path"`
	Size   int    `toml:"size"`
}

type Search struct {
	ContextLines int   `toml:"context_lines"`
	MaxResults   int   `toml:"max_results"`
	MaxFileSize  int64 `toml:"max_file_size"`
	Workers      int   `toml:"workers"`
}

type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // json or console
	OutputPath string `toml:"output"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Default returns the built-in configuration with no allowed paths
func Default() *Config {
	return &Config{
		Index: Index{
			MaxFiles:               DefaultMaxFiles,
			MaxDirs:                DefaultMaxDirs,
			PartialRescanThreshold: DefaultPartialRescanThreshold,
			MaxCacheBytes:          DefaultMaxCacheBytes,
			RegistrySize:           DefaultRegistrySize,
		},
		Exclude: []string{},
		Cache: Cache{
			Driver: cache.DriverMemory,
			Size:   DefaultCacheSize,
		},
		Search: Search{
			ContextLines: DefaultContextLines,
			MaxResults:   DefaultMaxResults,
			MaxFileSize:  DefaultMaxFileSize,
			Workers:      DefaultWorkers,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Address: DefaultMetricsAddress,
		},
	}
}

// LoadOptions locate the configuration sources. Empty directories are skipped.
type LoadOptions struct {
	HomeDir    string
	ProjectDir string
	// Environ overrides the process environment, mainly for tests
	Environ map[string]string
}

// Load builds the configuration from, lowest precedence first: defaults,
// ~/.fsguard.kdl, the project's .fsguard.kdl (or .fsguard.toml), the
// project's .env file and the process environment. Command-line flags are
// applied on top by the caller.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.HomeDir != "" {
		if _, err := applyKDLFile(cfg, opts.HomeDir); err != nil {
			return nil, err
		}
	}

	if opts.ProjectDir != "" {
		found, err := applyKDLFile(cfg, opts.ProjectDir)
		if err != nil {
			return nil, err
		}
		if !found {
			if _, err := applyTOMLFile(cfg, opts.ProjectDir); err != nil {
				return nil, err
			}
		}
	}

	env := opts.Environ
	if env == nil {
		var err error
		if env, err = environment(opts.ProjectDir); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	cfg.Exclude = dedupe(cfg.Exclude)
	return cfg, nil
}

// LoadDefault loads with the user's home directory and the working directory
func LoadDefault() (*Config, error) {
	home, _ := os.UserHomeDir()
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Load(LoadOptions{HomeDir: home, ProjectDir: cwd})
}

// ParseAllowedPaths parses "path|name;path2" into allowed path entries.
// Blank segments are skipped and paths are made absolute.
func ParseAllowedPaths(raw string) []security.AllowedPath {
	var out []security.AllowedPath
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		path, name, _ := strings.Cut(segment, "|")
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		out = append(out, security.AllowedPath{Path: absPath(path), Name: strings.TrimSpace(name)})
	}
	return out
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// dedupe keeps the first occurrence of each pattern in order
func dedupe(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
