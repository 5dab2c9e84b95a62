package webserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gantrylabs/gantry/internal/platform/timeouts"
)

// Server binds the web application to a TCP listener and manages its
// lifecycle.
type Server struct {
	httpAddr   string
	app        *App
	httpServer *http.Server
}

// NewServer validates the address and wraps app for serving.
func NewServer(addr string, app *App) (*Server, error) {
	httpAddr := strings.TrimSpace(addr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if app == nil {
		return nil, errors.New("web application is required")
	}
	return &Server{
		httpAddr: httpAddr,
		app:      app,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           app.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends. The
// application's lifespan hook brackets the serve loop so protocol
// resources start before traffic arrives and stop after shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if s.app != nil {
		if err := s.app.StartLifespan(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			if err := s.app.StopLifespan(stopCtx); err != nil {
				log.Printf("%v", err)
			}
			cancel()
		}()
	}

	serveErr := make(chan error, 1)
	log.Printf("listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close closes the server immediately without graceful shutdown.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
