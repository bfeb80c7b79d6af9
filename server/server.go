// Package server assembles the MCP server: it registers every tool,
// routes each call through the admission stack, and exposes stdio and
// streamable HTTP transports.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jonwraymond/cratesmcp/cache"
	"github.com/jonwraymond/cratesmcp/middleware"
	"github.com/jonwraymond/cratesmcp/observe"
	"github.com/jonwraymond/cratesmcp/resilience"
	"github.com/jonwraymond/cratesmcp/tools"
)

const defaultInstructions = "This server provides tools for querying the Rust crate " +
	"ecosystem: crates.io metadata (search, versions, dependencies, downloads, owners, " +
	"features), docs.rs documentation (browse modules, look up items, search), and " +
	"OSV.dev security advisories (audit, health checks, comparisons). Responses are " +
	"cached; identical concurrent requests share a single upstream call."

// Config configures the MCP server.
type Config struct {
	// Name is the server name announced during initialization.
	// Default: "cratesmcp"
	Name string

	// Version is the server version announced during initialization.
	// Default: "dev"
	Version string

	// Instructions is the usage text sent to clients. A default
	// describing the available tool groups is used when empty.
	Instructions string

	// Logger receives server lifecycle events. Defaults to a no-op
	// logger.
	Logger observe.Logger
}

// Server is the assembled MCP server.
//
// Contract:
//   - Concurrency: safe for concurrent tool calls; all admission
//     decisions happen in the middleware stack.
//   - Errors: admission failures and handler errors are reported as
//     MCP tool errors, never as protocol errors.
type Server struct {
	config  Config
	mcp     *mcpserver.MCPServer
	wrapped middleware.Handler
	byName  map[string]tools.Tool
	logger  observe.Logger
}

// New creates a server with every tool registered behind the given
// admission stack. A nil stack gets default components.
func New(config Config, st *tools.State, stack *middleware.Stack) *Server {
	// Apply defaults
	if config.Name == "" {
		config.Name = "cratesmcp"
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.Instructions == "" {
		config.Instructions = defaultInstructions
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if stack == nil {
		stack = middleware.NewStack(middleware.StackConfig{})
	}

	s := &Server{
		config: config,
		byName: make(map[string]tools.Tool),
		logger: config.Logger.WithComponent("server"),
	}
	s.wrapped = stack.Wrap(s.dispatch)

	s.mcp = mcpserver.NewMCPServer(
		config.Name,
		config.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(config.Instructions),
	)
	for _, t := range tools.All(st) {
		s.byName[t.Definition.Name] = t
		s.mcp.AddTool(t.Definition, s.toolHandler(t.Definition.Name))
	}
	return s
}

// dispatch is the innermost handler: it runs after the admission stack
// has admitted the call.
func (s *Server) dispatch(ctx context.Context, name string, args any) ([]byte, error) {
	t, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	argMap, _ := args.(map[string]any)
	if argMap == nil {
		argMap = map[string]any{}
	}
	out, err := t.Handler(ctx, argMap)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (s *Server) toolHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.wrapped(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(userMessage(name, err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// userMessage converts an admission or handler error into the message
// shown to the client.
func userMessage(name string, err error) string {
	switch {
	case errors.Is(err, resilience.ErrBulkheadFull):
		return fmt.Sprintf("%s: server is at capacity, retry shortly", name)
	case errors.Is(err, resilience.ErrTimeout):
		return fmt.Sprintf("%s: request timed out", name)
	case errors.Is(err, cache.ErrInvalidKey):
		return fmt.Sprintf("%s: invalid arguments: %v", name, err)
	default:
		return err.Error()
	}
}

// ServeStdio serves MCP over stdin/stdout and blocks until the client
// disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info(context.Background(), "serving MCP over stdio",
		observe.Field{Key: "name", Value: s.config.Name},
		observe.Field{Key: "version", Value: s.config.Version})
	return mcpserver.ServeStdio(s.mcp)
}

// ServeHTTP serves MCP over streamable HTTP on the given address and
// blocks until the listener fails or is shut down.
func (s *Server) ServeHTTP(addr string) error {
	s.logger.Info(context.Background(), "serving MCP over HTTP",
		observe.Field{Key: "addr", Value: addr},
		observe.Field{Key: "name", Value: s.config.Name},
		observe.Field{Key: "version", Value: s.config.Version})
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return httpServer.Start(addr)
}

// MCPServer exposes the underlying MCP server, mainly for tests and
// custom transports.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}
