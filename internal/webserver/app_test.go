package webserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/platform/config"
)

// memorySink is an in-memory events.Sink for handler tests.
type memorySink struct {
	mu        sync.Mutex
	list      []events.Event
	pingErr   error
	appendErr error
}

func (m *memorySink) Append(_ context.Context, event events.Event) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, event)
	return nil
}

func (m *memorySink) Recent(_ context.Context, filter events.Filter) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit := events.ClampLimit(filter.Limit)
	out := make([]events.Event, 0, len(m.list))
	for idx := len(m.list) - 1; idx >= 0; idx-- {
		event := m.list[idx]
		if filter.Source != "" && event.Source != filter.Source {
			continue
		}
		out = append(out, event)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memorySink) Get(_ context.Context, id string) (events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, event := range m.list {
		if event.ID == id {
			return event, nil
		}
	}
	return events.Event{}, events.ErrNotFound
}

func (m *memorySink) Stats(_ context.Context) (events.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := events.Stats{BySource: make(map[string]int64)}
	for _, event := range m.list {
		stats.Total++
		stats.BySource[event.Source]++
	}
	return stats, nil
}

func (m *memorySink) Ping(_ context.Context) error { return m.pingErr }

var _ events.Sink = (*memorySink)(nil)

func (m *memorySink) stored() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Event, len(m.list))
	copy(out, m.list)
	return out
}

func testSettings(mutate func(*config.Settings)) *config.Settings {
	settings := &config.Settings{
		LogLevel:             "info",
		Host:                 "127.0.0.1",
		Port:                 8000,
		Transport:            "sse",
		EventsDBPath:         "gantry.db",
		CORSAllowOrigins:     []string{"*"},
		CORSAllowCredentials: true,
		CORSAllowMethods:     []string{"*"},
		CORSAllowHeaders:     []string{"*"},
	}
	if mutate != nil {
		mutate(settings)
	}
	return settings
}

func newTestApp(t *testing.T, sink events.Sink, mutate func(*config.Settings)) *App {
	t.Helper()
	app, err := New(Config{Settings: testSettings(mutate), Events: sink})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func TestNewRequiresSettings(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing settings")
	}
}

func TestMountDispatchesExactAndNestedPaths(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	if err := app.Mount("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-Path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})); err != nil {
		t.Fatalf("mount: %v", err)
	}

	for _, path := range []string{"/mcp", "/mcp/session"} {
		rr := httptest.NewRecorder()
		app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, rr.Code, http.StatusOK)
		}
		if got := rr.Header().Get("X-Served-Path"); got != path {
			t.Fatalf("served path = %q, want %q (mounts must see the original path)", got, path)
		}
	}

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/mcpx", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET /mcpx status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestMountReplacesPreviousHandler(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	first := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	second := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if err := app.Mount("/mcp", first); err != nil {
		t.Fatalf("first mount: %v", err)
	}
	if err := app.Mount("/mcp", second); err != nil {
		t.Fatalf("remount: %v", err)
	}

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (remount must replace the previous handler)", rr.Code, http.StatusOK)
	}
	if app.mountCount() != 1 {
		t.Fatalf("mountCount() = %d, want 1", app.mountCount())
	}
}

func TestMountPrefersLongestPrefix(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	if err := app.Mount("/api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})); err != nil {
		t.Fatalf("mount /api: %v", err)
	}
	if err := app.Mount("/api/mcp", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})); err != nil {
		t.Fatalf("mount /api/mcp: %v", err)
	}

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mcp/stream", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (longest mount prefix wins)", rr.Code, http.StatusOK)
	}
}

func TestMountRejectsInvalidPathsAndNilHandler(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	for _, path := range []string{"", "/", "mcp", "  "} {
		if err := app.Mount(path, noop); err == nil {
			t.Fatalf("Mount(%q) expected error", path)
		}
	}
	if err := app.Mount("/mcp", nil); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}

func TestMountNormalizesTrailingSlash(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	if err := app.Mount("/sse/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})); err != nil {
		t.Fatalf("mount: %v", err)
	}

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sse", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestHealthRouteRejectsNonGET(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestAppStampsCORSHeadersFromSettings(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, func(s *config.Settings) {
		s.CORSAllowOrigins = []string{"https://console.example.com"}
		s.CORSAllowCredentials = false
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://console.example.com")
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Fatalf("allow-origin = %q, want configured origin", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("allow-credentials = %q, want empty", got)
	}
}

func TestAppAnswersPreflightForMountedPath(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	if err := app.Mount("/mcp", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})); err != nil {
		t.Fatalf("mount: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin = %q, want echoed origin", got)
	}
}

func TestSetLifespanReplacesHook(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	if err := app.StartLifespan(context.Background()); err != nil {
		t.Fatalf("start without hook: %v", err)
	}

	first := &recordingLifespan{}
	second := &recordingLifespan{}
	app.SetLifespan(first)
	app.SetLifespan(second)

	if err := app.StartLifespan(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := app.StopLifespan(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if first.starts != 0 || first.stops != 0 {
		t.Fatalf("replaced hook ran: starts=%d stops=%d", first.starts, first.stops)
	}
	if second.starts != 1 || second.stops != 1 {
		t.Fatalf("active hook: starts=%d stops=%d, want 1/1", second.starts, second.stops)
	}
}

// recordingLifespan counts hook invocations for lifecycle tests.
type recordingLifespan struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
}

func (r *recordingLifespan) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	return nil
}

func (r *recordingLifespan) Stop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}
