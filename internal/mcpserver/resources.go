package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// recentWebhooksURI addresses the readable recent-events resource.
const recentWebhooksURI = "gantry://webhooks/recent"

// RecentWebhooksPayload represents the MCP resource payload for recent events.
type RecentWebhooksPayload struct {
	Events []WebhookEventSummary `json:"events"`
}

// RecentWebhooksResource defines the MCP resource for recent webhook events.
func RecentWebhooksResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "webhooks_recent",
		Title:       "Recent Webhook Events",
		Description: "Readable listing of recently received webhook events. URI format: gantry://webhooks/recent",
		MIMEType:    "application/json",
		URI:         recentWebhooksURI,
	}
}

// RecentWebhooksResourceHandler returns a readable recent-events resource.
func RecentWebhooksResourceHandler(sink events.Sink) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if sink == nil {
			return nil, fmt.Errorf("event journal is not configured")
		}

		uri := recentWebhooksURI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}
		if uri != recentWebhooksURI {
			return nil, fmt.Errorf("invalid URI: expected %s, got %q", recentWebhooksURI, uri)
		}

		list, err := sink.Recent(ctx, events.Filter{})
		if err != nil {
			return nil, fmt.Errorf("list webhook events: %w", err)
		}

		payload := RecentWebhooksPayload{Events: make([]WebhookEventSummary, 0, len(list))}
		for _, event := range list {
			payload.Events = append(payload.Events, WebhookEventSummary{
				ID:         event.ID,
				Source:     event.Source,
				Type:       event.Type,
				ReceivedAt: formatReceivedAt(event.ReceivedAt),
			})
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal webhook events: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

func registerResources(server *mcp.Server, sink events.Sink) {
	server.AddResource(RecentWebhooksResource(), RecentWebhooksResourceHandler(sink))
}
