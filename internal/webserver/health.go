package webserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gantrylabs/gantry/internal/platform/branding"
	"github.com/gantrylabs/gantry/internal/webserver/httpx"
)

// healthProbeTimeout caps per-component probes so a wedged dependency
// cannot stall the liveness endpoint.
const healthProbeTimeout = 2 * time.Second

// healthResponse is the liveness payload served at /health.
type healthResponse struct {
	Status        string          `json:"status"`
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Checks        map[string]bool `json:"checks,omitempty"`
}

// handleHealth reports process liveness. The status is always healthy for
// a serving process; per-component probe results ride along in checks so
// operators can spot degraded dependencies without failing the probe.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       branding.Version,
		UptimeSeconds: time.Since(a.startedAt).Seconds(),
		Checks:        a.componentChecks(r.Context()),
	}
	if err := httpx.WriteJSON(w, http.StatusOK, response); err != nil {
		log.Printf("write health response: %v", err)
	}
}

// componentChecks probes the components this application can observe.
// Components without a probe are omitted rather than guessed.
func (a *App) componentChecks(ctx context.Context) map[string]bool {
	checks := make(map[string]bool)
	if a.events != nil {
		probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
		checks["event_store"] = a.events.Ping(probeCtx) == nil
		cancel()
	}
	if a.mountCount() > 0 {
		checks["mcp_server"] = true
	}
	if len(checks) == 0 {
		return nil
	}
	return checks
}
