package webserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNewServerValidatesInputs(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	if _, err := NewServer("", app); err == nil {
		t.Fatalf("expected error for empty address")
	}
	if _, err := NewServer("127.0.0.1:0", nil); err == nil {
		t.Fatalf("expected error for nil application")
	}
	server, err := NewServer(" 127.0.0.1:0 ", app)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	server.Close()
}

func TestListenAndServeShutsDown(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	hook := &recordingLifespan{}
	app.SetLifespan(hook)

	server, err := NewServer("127.0.0.1:0", app)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- server.ListenAndServe(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for shutdown")
	}

	if hook.starts != 1 {
		t.Fatalf("lifespan starts = %d, want 1", hook.starts)
	}
	if hook.stops != 1 {
		t.Fatalf("lifespan stops = %d, want 1", hook.stops)
	}
}

func TestListenAndServeReturnsServeError(t *testing.T) {
	t.Parallel()

	server := &Server{
		httpAddr:   "127.0.0.1:-1",
		httpServer: &http.Server{Addr: "127.0.0.1:-1"},
	}

	err := server.ListenAndServe(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "serve http") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListenAndServeAbortsOnLifespanFailure(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, nil)
	app.SetLifespan(&recordingLifespan{startErr: errors.New("journal offline")})

	server, err := NewServer("127.0.0.1:0", app)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	err = server.ListenAndServe(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "start protocol lifespan") {
		t.Fatalf("unexpected error: %v", err)
	}
}
