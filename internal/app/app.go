package app

import (
	"strings"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/mcpserver"
	"github.com/gantrylabs/gantry/internal/platform/config"
	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
	"github.com/gantrylabs/gantry/internal/webserver"
)

// Deps carry the collaborators injected into provider builds.
type Deps struct {
	// Events is the webhook journal shared by the protocol server and the
	// web application. Optional; both run without one.
	Events events.Sink
}

// App bundles the providers of one Gantry process. Each App owns its own
// instance slots, so separate instances never share state.
type App struct {
	MCP        *MCPProvider
	Web        *WebProvider
	Integrated *IntegratedProvider
}

// New wires the providers against the given settings and dependencies.
func New(settings *config.Settings, deps Deps) (*App, error) {
	if settings == nil {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "settings are required")
	}

	mcp := NewMCPProvider(func(opts MCPOptions) (*mcpserver.Server, error) {
		token := strings.TrimSpace(opts.Token)
		if token == "" {
			token = settings.APIToken
		}
		return mcpserver.New(mcpserver.Config{
			Name:    opts.Name,
			Version: opts.Version,
			Events:  deps.Events,
			Token:   token,
		})
	})

	web := NewWebProvider(func() (*webserver.App, error) {
		webApp, err := webserver.New(webserver.Config{Settings: settings, Events: deps.Events})
		if err != nil {
			return nil, err
		}
		// Bind the protocol lifecycle at construction time when the
		// protocol server already exists, so both start and stop together.
		if hook, err := mcp.Lifespan(); err == nil {
			webApp.SetLifespan(hook)
		}
		return webApp, nil
	})

	return &App{
		MCP:        mcp,
		Web:        web,
		Integrated: NewIntegratedProvider(mcp, web),
	}, nil
}
