// Package mcpserver hosts the Gantry MCP protocol server. One Server instance
// serves every transport: stdio for local clients, and SSE or streamable HTTP
// adapters mounted into the web application for remote clients.
package mcpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/platform/branding"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverName identifies this MCP server to clients.
var serverName = branding.AppName + " MCP"

// Config configures the MCP server.
type Config struct {
	// Name overrides the server name reported during initialization.
	Name string
	// Version overrides the server version reported during initialization.
	Version string
	// Events is the webhook journal surfaced through tools and resources.
	// The server runs without one; journal tools then report it as missing.
	Events events.Sink
	// Token guards the HTTP adapters when non-empty. Stdio is unaffected
	// because stdio clients already share the process boundary.
	Token string
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	events    events.Sink
	token     string
}

// New creates a configured MCP server with the journal tools and resources
// registered.
func New(cfg Config) (*Server, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = serverName
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = branding.Version
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	server := &Server{mcpServer: mcpServer, events: cfg.Events, token: strings.TrimSpace(cfg.Token)}
	if err := registerTools(mcpServer, cfg.Events); err != nil {
		return nil, fmt.Errorf("register MCP tools: %w", err)
	}
	registerResources(mcpServer, cfg.Events)
	return server, nil
}

// RunStdio serves the protocol on stdio and blocks until the client
// disconnects or the context ends.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
// Context cancellation is the normal shutdown path, not an error.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// StreamableHandler returns the streamable HTTP adapter for this server.
func (s *Server) StreamableHandler() http.Handler {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	return s.authorizeBearer(handler)
}

// SSEHandler returns the SSE adapter for this server.
func (s *Server) SSEHandler() http.Handler {
	handler := mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	return s.authorizeBearer(handler)
}

// authorizeBearer enforces the static bearer token on HTTP transports.
// Without a configured token requests pass through unchanged, which keeps
// trusted local deployments free of auth prerequisites.
func (s *Server) authorizeBearer(next http.Handler) http.Handler {
	if s == nil || s.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			http.Error(w, "invalid access token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
