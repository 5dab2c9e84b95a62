// Package webserver hosts the Gantry web application: the liveness
// endpoint, webhook ingress over the event journal, and mount points for
// the MCP protocol adapters supplied by the composition layer.
package webserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/platform/config"
	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
	"github.com/gantrylabs/gantry/internal/webserver/httpx"
)

// Config carries the web application inputs.
type Config struct {
	// Settings supplies CORS, auth, and logging configuration.
	Settings *config.Settings
	// Events is the webhook journal. The application serves without one;
	// webhook routes then report the journal as unavailable.
	Events events.Sink
}

// Lifespan is the startup/shutdown hook a mounted protocol server
// contributes so its background resources follow the web process.
type Lifespan interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App is the web application. It serves its own routes and dispatches to
// sub-applications mounted at runtime.
type App struct {
	settings  *config.Settings
	events    events.Sink
	startedAt time.Time
	mux       *http.ServeMux
	handler   http.Handler

	mu       sync.RWMutex
	mounts   map[string]http.Handler
	lifespan Lifespan
}

// New builds the web application from settings.
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		return nil, errors.New("settings are required")
	}

	app := &App{
		settings:  cfg.Settings,
		events:    cfg.Events,
		startedAt: time.Now(),
		mux:       http.NewServeMux(),
		mounts:    make(map[string]http.Handler),
	}
	app.mux.Handle("/health", httpx.RequireMethod(http.MethodGet)(http.HandlerFunc(app.handleHealth)))
	app.mux.Handle("/webhook/events", httpx.RequireMethod(http.MethodGet)(http.HandlerFunc(app.handleWebhookEvents)))
	app.mux.Handle("/webhook/{source}", httpx.RequireMethod(http.MethodPost)(http.HandlerFunc(app.handleWebhookIngest)))

	app.handler = httpx.Chain(http.HandlerFunc(app.route),
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.CORS(httpx.CORSOptions{
			AllowOrigins:     cfg.Settings.CORSAllowOrigins,
			AllowCredentials: cfg.Settings.CORSAllowCredentials,
			AllowMethods:     cfg.Settings.CORSAllowMethods,
			AllowHeaders:     cfg.Settings.CORSAllowHeaders,
		}),
		requestLogger(cfg.Settings.Debug()),
	)
	return app, nil
}

// Handler returns the application's root handler.
func (a *App) Handler() http.Handler {
	if a == nil {
		return http.NotFoundHandler()
	}
	return a.handler
}

// Mount registers handler at path, replacing any previous registration at
// the same path. Replacement is how the composition layer swaps protocol
// adapters after a reset without rebuilding the application.
func (a *App) Mount(path string, handler http.Handler) error {
	if a == nil {
		return errors.New("web application is nil")
	}
	cleaned := strings.TrimRight(strings.TrimSpace(path), "/")
	if !strings.HasPrefix(cleaned, "/") {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid mount path: %q", path))
	}
	if handler == nil {
		return apperrors.New(apperrors.CodeInvalidArgument, "mount handler is required")
	}
	a.mu.Lock()
	a.mounts[cleaned] = handler
	a.mu.Unlock()
	return nil
}

// SetLifespan attaches the protocol server's startup/shutdown hook. A
// later call replaces the hook, mirroring mount replacement.
func (a *App) SetLifespan(lifespan Lifespan) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.lifespan = lifespan
	a.mu.Unlock()
}

// StartLifespan runs the attached startup hook, if any.
func (a *App) StartLifespan(ctx context.Context) error {
	lifespan := a.currentLifespan()
	if lifespan == nil {
		return nil
	}
	if err := lifespan.Start(ctx); err != nil {
		return fmt.Errorf("start protocol lifespan: %w", err)
	}
	return nil
}

// StopLifespan runs the attached shutdown hook, if any.
func (a *App) StopLifespan(ctx context.Context) error {
	lifespan := a.currentLifespan()
	if lifespan == nil {
		return nil
	}
	if err := lifespan.Stop(ctx); err != nil {
		return fmt.Errorf("stop protocol lifespan: %w", err)
	}
	return nil
}

func (a *App) currentLifespan() Lifespan {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lifespan
}

// route sends the request to the longest matching mount, falling back to
// the application's own routes. Mounted handlers see the original path
// because the protocol adapters derive follow-up endpoint URLs from it.
func (a *App) route(w http.ResponseWriter, r *http.Request) {
	if handler := a.mountFor(r.URL.Path); handler != nil {
		handler.ServeHTTP(w, r)
		return
	}
	a.mux.ServeHTTP(w, r)
}

// mountFor resolves the mounted handler covering path, if any. A mount
// covers its exact path and everything below it.
func (a *App) mountFor(path string) http.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var best string
	var handler http.Handler
	for mount, mounted := range a.mounts {
		if path != mount && !strings.HasPrefix(path, mount+"/") {
			continue
		}
		if len(mount) > len(best) {
			best = mount
			handler = mounted
		}
	}
	return handler
}

// mountCount reports how many sub-applications are mounted.
func (a *App) mountCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.mounts)
}

// Mounted reports whether a sub-application is mounted at path.
func (a *App) Mounted(path string) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.mounts[strings.TrimRight(strings.TrimSpace(path), "/")]
	return ok
}

// requestLogger logs served requests when debug logging is enabled. Quiet
// otherwise so webhook bursts do not flood operator logs.
func requestLogger(enabled bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
		})
	}
}
