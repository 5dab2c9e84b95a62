package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// EchoInput represents the MCP tool input for the echo probe.
type EchoInput struct {
	Message string `json:"message" jsonschema:"text to echo back"`
}

// EchoResult represents the MCP tool output for the echo probe.
type EchoResult struct {
	Message string `json:"message" jsonschema:"echoed text"`
}

// WebhookEventsListInput represents the MCP tool input for listing events.
type WebhookEventsListInput struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum events to return, newest first"`
	Source string `json:"source,omitempty" jsonschema:"restrict results to one webhook source"`
}

// WebhookEventSummary represents one journal entry without its payload.
type WebhookEventSummary struct {
	ID         string `json:"id" jsonschema:"event identifier"`
	Source     string `json:"source" jsonschema:"webhook source name"`
	Type       string `json:"type" jsonschema:"event type"`
	ReceivedAt string `json:"received_at" jsonschema:"receipt time in RFC 3339"`
}

// WebhookEventsListResult represents the MCP tool output for listing events.
type WebhookEventsListResult struct {
	Events []WebhookEventSummary `json:"events" jsonschema:"matching events, newest first"`
	Count  int                   `json:"count" jsonschema:"number of events returned"`
}

// WebhookEventsGetInput represents the MCP tool input for fetching one event.
type WebhookEventsGetInput struct {
	ID string `json:"id" jsonschema:"event identifier"`
}

// WebhookEventsGetResult represents the MCP tool output for one event.
type WebhookEventsGetResult struct {
	ID         string `json:"id" jsonschema:"event identifier"`
	Source     string `json:"source" jsonschema:"webhook source name"`
	Type       string `json:"type" jsonschema:"event type"`
	Payload    any    `json:"payload" jsonschema:"decoded JSON payload"`
	ReceivedAt string `json:"received_at" jsonschema:"receipt time in RFC 3339"`
}

// WebhookEventsStatsInput represents the MCP tool input for journal stats.
type WebhookEventsStatsInput struct{}

// WebhookEventsStatsResult represents the MCP tool output for journal stats.
type WebhookEventsStatsResult struct {
	Total    int64            `json:"total" jsonschema:"total stored events"`
	BySource map[string]int64 `json:"by_source" jsonschema:"event counts per source"`
	Oldest   string           `json:"oldest,omitempty" jsonschema:"oldest receipt time in RFC 3339"`
	Newest   string           `json:"newest,omitempty" jsonschema:"newest receipt time in RFC 3339"`
}

// EchoTool defines the MCP tool schema for the echo probe.
func EchoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "echo",
		Description: "Echoes a message back to the caller",
	}
}

// WebhookEventsListTool defines the MCP tool schema for listing events.
func WebhookEventsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "webhook_events_list",
		Description: "Lists recently received webhook events, newest first",
	}
}

// WebhookEventsGetTool defines the MCP tool schema for fetching one event.
func WebhookEventsGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "webhook_events_get",
		Description: "Fetches one webhook event with its payload",
	}
}

// WebhookEventsStatsTool defines the MCP tool schema for journal stats.
func WebhookEventsStatsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "webhook_events_stats",
		Description: "Summarizes the webhook event journal",
	}
}

// EchoHandler returns the message unchanged.
func EchoHandler() mcp.ToolHandlerFor[EchoInput, EchoResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EchoInput) (*mcp.CallToolResult, EchoResult, error) {
		return nil, EchoResult{Message: input.Message}, nil
	}
}

// WebhookEventsListHandler lists recent events from the journal.
func WebhookEventsListHandler(sink events.Sink) mcp.ToolHandlerFor[WebhookEventsListInput, WebhookEventsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WebhookEventsListInput) (*mcp.CallToolResult, WebhookEventsListResult, error) {
		if sink == nil {
			return nil, WebhookEventsListResult{}, fmt.Errorf("event journal is not configured")
		}

		list, err := sink.Recent(ctx, events.Filter{
			Limit:  input.Limit,
			Source: input.Source,
		})
		if err != nil {
			return nil, WebhookEventsListResult{}, fmt.Errorf("list webhook events: %w", err)
		}

		result := WebhookEventsListResult{Events: make([]WebhookEventSummary, 0, len(list))}
		for _, event := range list {
			result.Events = append(result.Events, WebhookEventSummary{
				ID:         event.ID,
				Source:     event.Source,
				Type:       event.Type,
				ReceivedAt: formatReceivedAt(event.ReceivedAt),
			})
		}
		result.Count = len(result.Events)
		return nil, result, nil
	}
}

// WebhookEventsGetHandler fetches one event with its decoded payload.
func WebhookEventsGetHandler(sink events.Sink) mcp.ToolHandlerFor[WebhookEventsGetInput, WebhookEventsGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WebhookEventsGetInput) (*mcp.CallToolResult, WebhookEventsGetResult, error) {
		if sink == nil {
			return nil, WebhookEventsGetResult{}, fmt.Errorf("event journal is not configured")
		}
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return nil, WebhookEventsGetResult{}, fmt.Errorf("event id is required")
		}

		event, err := sink.Get(ctx, id)
		if err != nil {
			if errors.Is(err, events.ErrNotFound) {
				return nil, WebhookEventsGetResult{}, fmt.Errorf("webhook event %q not found", id)
			}
			return nil, WebhookEventsGetResult{}, fmt.Errorf("get webhook event: %w", err)
		}

		var payload any
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				return nil, WebhookEventsGetResult{}, fmt.Errorf("decode event payload: %w", err)
			}
		}

		return nil, WebhookEventsGetResult{
			ID:         event.ID,
			Source:     event.Source,
			Type:       event.Type,
			Payload:    payload,
			ReceivedAt: formatReceivedAt(event.ReceivedAt),
		}, nil
	}
}

// WebhookEventsStatsHandler summarizes the journal.
func WebhookEventsStatsHandler(sink events.Sink) mcp.ToolHandlerFor[WebhookEventsStatsInput, WebhookEventsStatsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ WebhookEventsStatsInput) (*mcp.CallToolResult, WebhookEventsStatsResult, error) {
		if sink == nil {
			return nil, WebhookEventsStatsResult{}, fmt.Errorf("event journal is not configured")
		}

		stats, err := sink.Stats(ctx)
		if err != nil {
			return nil, WebhookEventsStatsResult{}, fmt.Errorf("webhook event stats: %w", err)
		}

		result := WebhookEventsStatsResult{
			Total:    stats.Total,
			BySource: stats.BySource,
		}
		if !stats.Oldest.IsZero() {
			result.Oldest = formatReceivedAt(stats.Oldest)
		}
		if !stats.Newest.IsZero() {
			result.Newest = formatReceivedAt(stats.Newest)
		}
		return nil, result, nil
	}
}

func formatReceivedAt(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

func registerTools(server *mcp.Server, sink events.Sink) error {
	registrations := []func() error{
		func() error { return registerTool(server, EchoTool(), EchoHandler()) },
		func() error { return registerTool(server, WebhookEventsListTool(), WebhookEventsListHandler(sink)) },
		func() error { return registerTool(server, WebhookEventsGetTool(), WebhookEventsGetHandler(sink)) },
		func() error { return registerTool(server, WebhookEventsStatsTool(), WebhookEventsStatsHandler(sink)) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

func registerTool[I any, O any](server *mcp.Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[I, O]) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	mcp.AddTool(server, tool, handler)
	return nil
}
