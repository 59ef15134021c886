package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fsguard/internal/logging"
	"github.com/standardbeagle/fsguard/internal/mcp"
	"github.com/standardbeagle/fsguard/internal/metrics"
	"github.com/standardbeagle/fsguard/internal/version"
)

func mcpCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if addr := c.String("metrics-addr"); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = addr
	}

	rt, err := newRuntime(cfg, logging.ModeMCP)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.logFile != "" {
		// stdout is the protocol channel; stderr is safe for a single hint
		fmt.Fprintf(os.Stderr, "fsguard: logging to %s\n", rt.logFile)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(rt.service, mcp.Options{
		Name:     "fsguard-mcp-server",
		Version:  version.Info(),
		Logger:   rt.logger,
		Observer: rt.metrics,
	})

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Address, rt.gatherer, rt.logger)
		})
	}
	g.Go(func() error {
		defer stop()
		err := server.Start(ctx)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	rt.logger.Info("fsguard MCP server started",
		zap.String("version", version.FullInfo()),
		zap.Int("allowed_paths", len(cfg.AllowedPaths)),
		zap.Bool("metrics", cfg.Metrics.Enabled))

	if err := g.Wait(); err != nil && err != context.Canceled {
		rt.logger.Error("MCP server stopped", zap.Error(err))
		return err
	}
	return nil
}
