package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/felixgeelhaar/mcp-go"
	mcpserver "github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// ErrNoRegistry is returned when a server is created without tools.
var ErrNoRegistry = errors.New("mcp: tool registry is required")

// Server exposes the tools of a registry as MCP tools. Every call runs
// through the configured middleware chain.
type Server struct {
	srv      *mcpgo.Server
	registry tool.Registry
	handler  middleware.Handler
	info     mcpgo.ServerInfo
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Registry holds the tools to expose.
	Registry tool.Registry

	// Middleware wraps every tool call, outermost first.
	Middleware []middleware.Middleware

	// Instructions provides usage instructions for clients.
	Instructions string
}

// NewServer creates an MCP server over the registry tools.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, ErrNoRegistry
	}

	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: "Concept graph analytics with a result cache",
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &Server{
		srv:      mcpgo.NewServer(info, opts...),
		registry: cfg.Registry,
		handler:  middleware.Chain(cfg.Middleware...)(middleware.Execute),
		info:     info,
	}
	for _, t := range cfg.Registry.List() {
		s.registerTool(t)
	}

	logging.Info().
		Add(logging.Component("mcp")).
		Add(logging.Count("tools", len(cfg.Registry.Names()))).
		Msg("mcp server ready")
	return s, nil
}

func (s *Server) registerTool(t tool.Tool) {
	handler := func(ctx context.Context, input json.RawMessage) (string, error) {
		result, err := s.Call(ctx, t.Name(), input)
		if err != nil {
			return "", err
		}
		return string(result.Output), nil
	}

	s.srv.Tool(t.Name()).
		Description(t.Description()).
		Handler(handler)
}

// Call runs one tool through the middleware chain. The CLI uses it to
// invoke tools without a transport.
func (s *Server) Call(ctx context.Context, name string, input json.RawMessage) (tool.Result, error) {
	t, ok := s.registry.Get(name)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %s", tool.ErrToolNotFound, name)
	}
	if err := t.InputSchema().Validate(input); err != nil {
		return tool.FailureResult(tool.ErrorValidation, err.Error()), nil
	}

	execCtx := &middleware.ExecutionContext{
		RequestID: uuid.NewString(),
		Tool:      t,
		Input:     input,
		StartedAt: time.Now(),
	}
	return s.handler(ctx, execCtx)
}

// Tools returns the registered tools ordered by name.
func (s *Server) Tools() []tool.Tool {
	return s.registry.List()
}

// Info returns the server metadata.
func (s *Server) Info() ServerInfo {
	return s.info
}

// Use adds protocol-level middleware to the server.
func (s *Server) Use(middlewares ...mcpserver.Middleware) {
	s.srv.Use(middlewares...)
}

// ServeStdio runs the server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context, opts ...ServeOption) error {
	return mcpgo.ServeStdio(ctx, s.srv, opts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (s *Server) ServeHTTP(ctx context.Context, addr string, opts ...HTTPOption) error {
	return mcpgo.ServeHTTP(ctx, s.srv, addr, opts...)
}
