// Package mcp exposes the file tools over the Model Context Protocol.
package mcp

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/standardbeagle/fsguard/internal/tools"
)

// Observer receives the duration and outcome of every tool call.
type Observer interface {
	ObserveToolCall(tool string, duration time.Duration, err error)
}

// Options configure a Server
type Options struct {
	Name     string
	Version  string
	Logger   *zap.Logger
	Observer Observer
}

// Server registers the file tools on an MCP server and serves them over stdio.
type Server struct {
	server   *mcp.Server
	tools    *tools.Service
	logger   *zap.Logger
	observer Observer
}

// NewServer creates an MCP server backed by svc
func NewServer(svc *tools.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "fsguard-mcp-server"
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    opts.Name,
			Version: opts.Version,
		}, nil),
		tools:    svc,
		logger:   logger.Named("mcp"),
		observer: opts.Observer,
	}
	s.registerTools()
	return s
}

// Start serves the tools over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// toolFunc is a tool body: it returns the value to serialize or an error.
type toolFunc func(ctx context.Context, req *mcp.CallToolRequest) (any, error)

// handle wraps a tool body with panic recovery, logging and metrics. Tool
// errors are reported inside the result with IsError set so the caller can
// see and correct them.
func (s *Server) handle(name string, fn toolFunc) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		start := time.Now()
		var callErr error
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic recovered",
					zap.String("tool", name),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				callErr = errPanic
				result, err = createErrorResponse(name, callErr)
			}
			s.finish(name, start, callErr)
		}()

		value, callErr := fn(ctx, req)
		if callErr != nil {
			return createErrorResponse(name, callErr)
		}
		return createJSONResponse(value)
	}
}

func (s *Server) finish(name string, start time.Time, err error) {
	duration := time.Since(start)
	if s.observer != nil {
		s.observer.ObserveToolCall(name, duration, err)
	}
	if err != nil {
		s.logger.Info("tool call failed",
			zap.String("tool", name),
			zap.Duration("duration", duration),
			zap.Error(err))
		return
	}
	s.logger.Debug("tool call", zap.String("tool", name), zap.Duration("duration", duration))
}
