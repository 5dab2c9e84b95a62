// Package timeouts defines shared timeout constants used across the
// scaffold. Centralizing these values prevents drift between the server
// layers and makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Lifespan caps startup and shutdown work done by the protocol server's
// lifecycle hook, such as pinging the event store.
const Lifespan = 5 * time.Second

// EnsureRetryBase is the initial wait between dependency creation attempts
// in the composition layer.
const EnsureRetryBase = 100 * time.Millisecond

// EnsureRetryMax caps the backoff between dependency creation attempts.
const EnsureRetryMax = 2 * time.Second
