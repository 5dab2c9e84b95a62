package webserver

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gantrylabs/gantry/internal/events"
	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
	"github.com/gantrylabs/gantry/internal/webserver/httpx"
)

// maxEventBodySize bounds webhook payloads. Provider events are small
// JSON documents; 1 MiB leaves headroom for verbose providers without
// letting a single request balloon memory.
const maxEventBodySize = 1 << 20

// eventTypeHeader names the event type when the payload does not.
const eventTypeHeader = "X-Webhook-Event"

// defaultEventType is recorded when neither header nor payload name one.
const defaultEventType = "unknown"

// acceptedResponse acknowledges an ingested webhook event.
type acceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// eventListResponse wraps the journal listing returned to API clients.
type eventListResponse struct {
	Events []events.Event `json:"events"`
	Count  int            `json:"count"`
}

// handleWebhookIngest accepts a provider event, normalizes it, and
// appends it to the journal. Providers only need a 202 back; consumers
// read the journal through the events API or the MCP tools.
func (a *App) handleWebhookIngest(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.PathValue("source"))
	if !validSourceName(source) {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid webhook source: %q", source))
		return
	}
	if err := a.authorizeWebhook(r); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if a.events == nil {
		_ = httpx.WriteJSONError(w, http.StatusServiceUnavailable, "event journal is not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodySize))
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "read request body")
		return
	}
	if len(body) == 0 {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "request body is required")
		return
	}
	if !json.Valid(body) {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	event := events.Event{
		ID:         uuid.NewString(),
		Source:     source,
		Type:       resolveEventType(r.Header.Get(eventTypeHeader), body),
		Payload:    body,
		ReceivedAt: time.Now().UTC(),
	}
	if err := a.events.Append(r.Context(), event); err != nil {
		log.Printf("append webhook event from %s: %v", source, err)
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "store webhook event")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusAccepted, acceptedResponse{ID: event.ID, Status: "accepted"})
}

// handleWebhookEvents lists recent journal entries, newest first.
func (a *App) handleWebhookEvents(w http.ResponseWriter, r *http.Request) {
	if err := a.authorizeAPI(r); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if a.events == nil {
		_ = httpx.WriteJSONError(w, http.StatusServiceUnavailable, "event journal is not configured")
		return
	}

	filter := events.Filter{Source: strings.TrimSpace(r.URL.Query().Get("source"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", raw))
			return
		}
		filter.Limit = limit
	}

	list, err := a.events.Recent(r.Context(), filter)
	if err != nil {
		log.Printf("list webhook events: %v", err)
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "list webhook events")
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, eventListResponse{Events: list, Count: len(list)})
}

// authorizeWebhook verifies the bearer JWT when a signing secret is
// configured. Without one ingress is open and deployments front it with
// network controls instead.
func (a *App) authorizeWebhook(r *http.Request) error {
	secret := a.settings.WebhookJWTSecret
	if secret == "" {
		return nil
	}
	token := bearerToken(r)
	if token == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "webhook token is required")
	}
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "webhook token is invalid", err)
	}
	return nil
}

// authorizeAPI enforces the static API token on journal reads when set.
func (a *App) authorizeAPI(r *http.Request) error {
	token := a.settings.APIToken
	if token == "" {
		return nil
	}
	presented := bearerToken(r)
	if presented == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "authorization required")
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
		return apperrors.New(apperrors.CodeUnauthenticated, "invalid access token")
	}
	return nil
}

// bearerToken extracts the bearer credential from the Authorization header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// resolveEventType names the event from the dedicated header, falling
// back to the payload's top-level type field.
func resolveEventType(header string, body []byte) string {
	if name := strings.TrimSpace(header); name != "" {
		return name
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err == nil {
		if name := strings.TrimSpace(probe.Type); name != "" {
			return name
		}
	}
	return defaultEventType
}

// validSourceName reports whether name is usable as a journal source.
// Path-safe names keep journal queries and tool filters unambiguous.
func validSourceName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
