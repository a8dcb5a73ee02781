package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/dicenotation"
	"github.com/louisbranch/dicenotation/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName = "dicenotation-mcp"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over streamable HTTP for remote clients.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	HTTPAddr  string // Defaults to localhost:8081 for HTTP transport.
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	roller    *dicenotation.Roller
}

// New creates an MCP server whose tools roll expressions with roller.
func New(roller *dicenotation.Roller) (*Server, error) {
	if roller == nil {
		return nil, fmt.Errorf("roller is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTools(mcpServer, roller)
	return &Server{mcpServer: mcpServer, roller: roller}, nil
}

func registerTools(server *mcp.Server, roller *dicenotation.Roller) {
	mcp.AddTool(server, domain.RollExpressionTool(), domain.RollExpressionHandler(roller))
	mcp.AddTool(server, domain.ExplainExpressionTool(), domain.ExplainExpressionHandler(roller))
	mcp.AddTool(server, domain.RollHistoryTool(), domain.RollHistoryHandler(roller))
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
func Run(ctx context.Context, cfg Config, roller *dicenotation.Roller) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, roller, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTPTransport(ctx, cfg, roller)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// serveWithTransport runs the MCP server over the provided transport until
// the context ends or the peer disconnects.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// runWithTransport creates a server and serves it over the provided transport.
func runWithTransport(ctx context.Context, roller *dicenotation.Roller, transport mcp.Transport) error {
	server, err := New(roller)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}
