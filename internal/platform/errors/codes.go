// Package errors provides structured error handling with machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lifecycle errors
	CodeAlreadyCreated Code = "ALREADY_CREATED"
	CodeNotCreated     Code = "NOT_CREATED"

	// Composition errors
	CodeInvalidTransport Code = "INVALID_TRANSPORT"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeNotFound        Code = "NOT_FOUND"

	// Infrastructure errors
	CodeStorage  Code = "STORAGE"
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps domain codes to HTTP status codes for the web layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeInvalidTransport:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyCreated, CodeNotCreated:
		// Lifecycle misuse is a host bug, not a client error.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
