package app

import (
	"net/http"

	"github.com/gantrylabs/gantry/internal/mcpserver"
	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
)

// MCPOptions carry per-instance overrides for the protocol server. Zero
// fields fall back to the provider's configured defaults.
type MCPOptions struct {
	// Name overrides the server identity reported to clients.
	Name string
	// Version overrides the reported server version.
	Version string
	// Token guards the HTTP protocol adapters when non-empty.
	Token string
}

// MCPProvider owns the single MCP server instance of the process.
type MCPProvider struct {
	build func(MCPOptions) (*mcpserver.Server, error)
	slot  slot[*mcpserver.Server]
}

// NewMCPProvider returns a provider that constructs instances with build.
func NewMCPProvider(build func(MCPOptions) (*mcpserver.Server, error)) *MCPProvider {
	return &MCPProvider{build: build}
}

// Create builds the MCP server and stores it. It fails when an instance
// already exists; the stored instance is left untouched.
func (p *MCPProvider) Create(opts MCPOptions) (*mcpserver.Server, error) {
	server, err := p.slot.create(func() (*mcpserver.Server, error) {
		return p.construct(opts)
	})
	if err == errSlotOccupied {
		return nil, apperrors.New(apperrors.CodeAlreadyCreated, "MCP server already created")
	}
	return server, err
}

// Get returns the stored MCP server.
func (p *MCPProvider) Get() (*mcpserver.Server, error) {
	server, err := p.slot.get()
	if err == errSlotEmpty {
		return nil, apperrors.New(apperrors.CodeNotCreated, "MCP server must be created first")
	}
	return server, err
}

// Ensure returns the stored MCP server, creating one when none exists.
func (p *MCPProvider) Ensure(opts MCPOptions) (*mcpserver.Server, error) {
	return p.slot.ensure(func() (*mcpserver.Server, error) {
		return p.construct(opts)
	})
}

// Reset drops the stored instance. Resetting an empty provider is a no-op.
func (p *MCPProvider) Reset() {
	p.slot.clear()
}

// Lifespan returns the start/stop hook binding the stored server's
// background resources to a host application.
func (p *MCPProvider) Lifespan() (*mcpserver.Lifespan, error) {
	server, err := p.Get()
	if err != nil {
		return nil, err
	}
	return server.Lifespan(), nil
}

// StreamableHandler returns the stored server's bidirectional HTTP
// streaming adapter.
func (p *MCPProvider) StreamableHandler() (http.Handler, error) {
	server, err := p.Get()
	if err != nil {
		return nil, err
	}
	return server.StreamableHandler(), nil
}

// SSEHandler returns the stored server's server-sent events adapter.
func (p *MCPProvider) SSEHandler() (http.Handler, error) {
	server, err := p.Get()
	if err != nil {
		return nil, err
	}
	return server.SSEHandler(), nil
}

func (p *MCPProvider) construct(opts MCPOptions) (*mcpserver.Server, error) {
	if p.build == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "MCP server builder is not configured")
	}
	return p.build(opts)
}
