package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeNotCreated, "web server not created")
	target := New(CodeNotCreated, "different message")

	if !stderrors.Is(err, target) {
		t.Fatal("expected errors with the same code to match")
	}
	other := New(CodeAlreadyCreated, "web server not created")
	if stderrors.Is(err, other) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeStorage, "append event", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found in chain")
	}
	if err.Error() != "append event" {
		t.Fatalf("expected message, got %q", err.Error())
	}
}

func TestMetadataCarriesContext(t *testing.T) {
	err := WithMetadata(CodeInvalidTransport, "bad transport", map[string]string{"transport": "carrier-pigeon"})
	if err.Metadata["transport"] != "carrier-pigeon" {
		t.Fatalf("metadata = %v, want transport entry", err.Metadata)
	}

	cause := stderrors.New("dial failed")
	wrapped := WrapWithMetadata(CodeStorage, "open journal", map[string]string{"path": "gantry.db"}, cause)
	if !stderrors.Is(wrapped, cause) {
		t.Fatal("expected wrapped cause to be found in chain")
	}
	if wrapped.Metadata["path"] != "gantry.db" {
		t.Fatalf("metadata = %v, want path entry", wrapped.Metadata)
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeInvalidTransport, "bad transport"))
	if got := CodeOf(err); got != CodeInvalidTransport {
		t.Fatalf("CodeOf = %q, want %q", got, CodeInvalidTransport)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf plain error = %q, want %q", got, CodeUnknown)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("ensure: %w", New(CodeNotCreated, "not created"))
	if !HasCode(err, CodeNotCreated) {
		t.Fatal("expected HasCode to find NOT_CREATED")
	}
	if HasCode(err, CodeAlreadyCreated) {
		t.Fatal("expected HasCode to reject other codes")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeInvalidTransport, http.StatusBadRequest},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeInternal, http.StatusInternalServerError},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}
