package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/fsguard/internal/cache"
	"github.com/standardbeagle/fsguard/internal/config"
	"github.com/standardbeagle/fsguard/internal/editing"
	"github.com/standardbeagle/fsguard/internal/indexing"
	"github.com/standardbeagle/fsguard/internal/logging"
	"github.com/standardbeagle/fsguard/internal/metrics"
	"github.com/standardbeagle/fsguard/internal/parser"
	"github.com/standardbeagle/fsguard/internal/search"
	"github.com/standardbeagle/fsguard/internal/security"
	"github.com/standardbeagle/fsguard/internal/tools"
	"github.com/standardbeagle/fsguard/internal/version"
)

var errNoAllowedPaths = errors.New("no allowed directories configured; set ALLOWED_PATHS, --allowed-paths or allowed_paths in .fsguard.kdl")

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	project := c.String("project")
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		project = cwd
	}
	home, _ := os.UserHomeDir()

	cfg, err := config.Load(config.LoadOptions{HomeDir: home, ProjectDir: project})
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", project, err)
	}

	if raw := c.String("allowed-paths"); raw != "" {
		cfg.AllowedPaths = config.ParseAllowedPaths(raw)
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludes...)
	}
	if v := c.String("cache-driver"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := c.String("cache-path"); v != "" {
		cfg.Cache.Path = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if c.IsSet("follow-symlinks") {
		cfg.Index.FollowSymlinks = c.Bool("follow-symlinks")
	}
	return cfg, nil
}

// runtime is the wired component graph shared by every command.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	logFile  string
	store    cache.Store[*indexing.Snapshot]
	metrics  *metrics.Collectors
	gatherer prometheus.Gatherer
	service  *tools.Service
}

func newRuntime(cfg *config.Config, mode logging.Mode) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.AllowedPaths) == 0 {
		return nil, errNoAllowedPaths
	}

	logger, logFile, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	}, mode)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open[*indexing.Snapshot](cache.Config{
		Driver: cfg.Cache.Driver,
		Path:   cfg.Cache.Path,
		Size:   cfg.Cache.Size,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open index cache: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collected := metrics.New(reg)

	guard := security.NewPathGuard(cfg.AllowedPaths)
	registry, err := indexing.NewRegistry(store, cfg.Index.RegistrySize, indexing.Options{
		Limits: indexing.Limits{
			MaxFiles:               cfg.Index.MaxFiles,
			MaxDirs:                cfg.Index.MaxDirs,
			PartialRescanThreshold: cfg.Index.PartialRescanThreshold,
			MaxCacheBytes:          cfg.Index.MaxCacheBytes,
			FollowSymlinks:         cfg.Index.FollowSymlinks,
		},
		Exclude:  cfg.Exclude,
		Observer: collected,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := search.NewEngine(guard, registry, search.Options{
		Workers:     cfg.Search.Workers,
		MaxFileSize: cfg.Search.MaxFileSize,
		Logger:      logger,
		Observer:    collected,
	})
	editor := editing.NewLineEditor(guard, editing.Options{
		MaxFileSize: cfg.Search.MaxFileSize,
		Logger:      logger,
		Observer:    collected,
	})
	service := tools.NewService(guard, registry, engine, editor, parser.NewRegistry(logger), tools.Options{
		Name:         "fsguard",
		Version:      version.Info(),
		MaxFileSize:  cfg.Search.MaxFileSize,
		ContextLines: cfg.Search.ContextLines,
		MaxResults:   cfg.Search.MaxResults,
		Logger:       logger,
	})

	logger.Debug("runtime ready",
		zap.Int("allowed_paths", len(cfg.AllowedPaths)),
		zap.String("cache_driver", cfg.Cache.Driver))

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		logFile:  logFile,
		store:    store,
		metrics:  collected,
		gatherer: reg,
		service:  service,
	}, nil
}

// Close flushes the logger and closes the cache store
func (r *runtime) Close() error {
	err := r.store.Close()
	_ = r.logger.Sync()
	return err
}
