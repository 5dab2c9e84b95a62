package app

import (
	"fmt"

	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
)

// Transport selects the wire mechanism carrying MCP traffic.
type Transport string

const (
	// TransportStdio runs the protocol server over the process pipes.
	TransportStdio Transport = "stdio"
	// TransportSSE serves protocol traffic as a server-sent event stream.
	TransportSSE Transport = "sse"
	// TransportStreamableHTTP serves protocol traffic over bidirectional
	// HTTP streaming.
	TransportStreamableHTTP Transport = "http-streaming"
)

// ParseTransport maps a raw string to a Transport. Raw strings stop here;
// everything past this call works with the typed value.
func ParseTransport(raw string) (Transport, error) {
	switch Transport(raw) {
	case TransportStdio:
		return TransportStdio, nil
	case TransportSSE:
		return TransportSSE, nil
	case TransportStreamableHTTP:
		return TransportStreamableHTTP, nil
	default:
		return "", apperrors.New(apperrors.CodeInvalidTransport,
			fmt.Sprintf("unknown transport %q (valid: stdio, sse, http-streaming)", raw))
	}
}

// String returns the wire form of the transport.
func (t Transport) String() string { return string(t) }

// Mountable reports whether the transport has an HTTP adapter that can be
// attached to the web application. Stdio has none.
func (t Transport) Mountable() bool {
	return t == TransportSSE || t == TransportStreamableHTTP
}

// DefaultMountPath returns the path the transport's adapter mounts at
// when the caller does not override it.
func (t Transport) DefaultMountPath() string {
	switch t {
	case TransportSSE:
		return "/sse"
	case TransportStreamableHTTP:
		return "/mcp"
	default:
		return ""
	}
}
