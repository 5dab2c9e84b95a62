package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gantrylabs/gantry/internal/mcpserver"
	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
	"github.com/gantrylabs/gantry/internal/platform/timeouts"
	"github.com/gantrylabs/gantry/internal/webserver"
)

// defaultEnsureAttempts bounds how often a dependency build is retried
// when IntegratedOptions.Retry is unset.
const defaultEnsureAttempts = 3

// IntegratedOptions configure the composed server.
type IntegratedOptions struct {
	// Token guards the mounted protocol adapter when non-empty.
	Token string
	// Transport selects the protocol adapter to mount. The zero value
	// defaults to the server-sent events transport.
	Transport Transport
	// MountPath overrides the transport's default mount path.
	MountPath string
	// Retry bounds the creation attempts per dependency. Values below one
	// fall back to defaultEnsureAttempts.
	Retry int
}

// IntegratedProvider owns the composed server: the web application with
// the MCP protocol adapter mounted into it. It builds its two dependencies
// through their providers and tears both down on reset.
type IntegratedProvider struct {
	mcp  *MCPProvider
	web  *WebProvider
	slot slot[*webserver.App]
}

// NewIntegratedProvider returns a provider composing mcp and web.
func NewIntegratedProvider(mcp *MCPProvider, web *WebProvider) *IntegratedProvider {
	return &IntegratedProvider{mcp: mcp, web: web}
}

// Create composes the integrated server and stores it. Dependencies that
// already exist are reused, missing ones are created with a bounded retry,
// and exactly one protocol adapter is mounted per call. Mounting at an
// occupied path replaces the previous adapter. It fails when a composed
// instance already exists.
//
// There is no unwind on failure: dependencies created before the error
// stay alive until Reset.
func (p *IntegratedProvider) Create(ctx context.Context, opts IntegratedOptions) (*webserver.App, error) {
	composed, err := p.slot.create(func() (*webserver.App, error) {
		return p.compose(ctx, opts)
	})
	if err == errSlotOccupied {
		return nil, apperrors.New(apperrors.CodeAlreadyCreated, "integrated server already created")
	}
	return composed, err
}

// Get returns the stored composed server.
func (p *IntegratedProvider) Get() (*webserver.App, error) {
	composed, err := p.slot.get()
	if err == errSlotEmpty {
		return nil, apperrors.New(apperrors.CodeNotCreated, "integrated server must be created first")
	}
	return composed, err
}

// Reset drops the composed instance and unconditionally resets both
// dependency providers, even when composition never succeeded.
func (p *IntegratedProvider) Reset() {
	p.slot.clear()
	if p.mcp != nil {
		p.mcp.Reset()
	}
	if p.web != nil {
		p.web.Reset()
	}
}

func (p *IntegratedProvider) compose(ctx context.Context, opts IntegratedOptions) (*webserver.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.mcp == nil || p.web == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "integrated server providers are not configured")
	}

	transport := opts.Transport
	if transport == "" {
		transport = TransportSSE
	}
	if !transport.Mountable() {
		return nil, apperrors.New(apperrors.CodeInvalidTransport,
			fmt.Sprintf("transport %q cannot be mounted (valid: sse, http-streaming)", transport))
	}

	mountPath := strings.TrimSpace(opts.MountPath)
	if mountPath == "" {
		mountPath = transport.DefaultMountPath()
	}

	attempts := opts.Retry
	if attempts < 1 {
		attempts = defaultEnsureAttempts
	}

	_, err := ensureWithRetry(ctx, attempts, "MCP server", func() (*mcpserver.Server, error) {
		return p.mcp.Ensure(MCPOptions{Token: opts.Token})
	})
	if err != nil {
		return nil, fmt.Errorf("ensure MCP server: %w", err)
	}

	webApp, err := ensureWithRetry(ctx, attempts, "web server", func() (*webserver.App, error) {
		return p.web.Ensure()
	})
	if err != nil {
		return nil, fmt.Errorf("ensure web server: %w", err)
	}

	var adapter http.Handler
	switch transport {
	case TransportSSE:
		adapter, err = p.mcp.SSEHandler()
	case TransportStreamableHTTP:
		adapter, err = p.mcp.StreamableHandler()
	}
	if err != nil {
		return nil, err
	}
	if err := webApp.Mount(mountPath, adapter); err != nil {
		return nil, fmt.Errorf("mount %s adapter at %s: %w", transport, mountPath, err)
	}

	hook, err := p.mcp.Lifespan()
	if err != nil {
		return nil, err
	}
	webApp.SetLifespan(hook)

	return webApp, nil
}

// ensureWithRetry runs ensure until it succeeds or attempts are exhausted,
// doubling the wait between attempts up to timeouts.EnsureRetryMax.
func ensureWithRetry[T any](ctx context.Context, attempts int, name string, ensure func() (T, error)) (T, error) {
	var zero T
	retryDelay := timeouts.EnsureRetryBase
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := ensure()
		if err == nil {
			return value, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		log.Printf("ensure %s attempt %d/%d failed: %v", name, attempt, attempts, err)
		timer := time.NewTimer(retryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
		retryDelay *= 2
		if retryDelay > timeouts.EnsureRetryMax {
			retryDelay = timeouts.EnsureRetryMax
		}
	}
	return zero, lastErr
}
