// Package events defines the webhook event journal shared by the web and
// protocol servers. Webhook ingress appends events; protocol tools and the
// events endpoint read them back.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates a requested event record is missing.
var ErrNotFound = errors.New("event not found")

// DefaultListLimit is used when a caller asks for a non-positive number of
// events.
const DefaultListLimit = 50

// MaxListLimit caps a single listing so one request cannot drain the journal.
const MaxListLimit = 500

// Event is one normalized webhook delivery.
type Event struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Filter narrows event listings.
type Filter struct {
	// Limit bounds the number of returned events. Non-positive values use
	// DefaultListLimit; values above MaxListLimit are clamped.
	Limit int
	// Source restricts results to one webhook source when non-empty.
	Source string
}

// Stats summarizes the journal contents.
type Stats struct {
	Total    int64            `json:"total"`
	BySource map[string]int64 `json:"by_source"`
	Oldest   time.Time        `json:"oldest,omitzero"`
	Newest   time.Time        `json:"newest,omitzero"`
}

// Sink persists and serves webhook events.
type Sink interface {
	Append(ctx context.Context, event Event) error
	Recent(ctx context.Context, filter Filter) ([]Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
}

// ClampLimit normalizes a listing limit to the allowed range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
