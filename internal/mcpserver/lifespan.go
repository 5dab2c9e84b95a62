package mcpserver

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/platform/timeouts"
)

// Lifespan binds the protocol server's background resources to a host
// process. Start verifies the event journal and begins health monitoring;
// Stop halts monitoring. The web application drives both around its serve
// loop so an integrated deployment shares one startup/shutdown path.
type Lifespan struct {
	events events.Sink
	cancel context.CancelFunc
	done   chan struct{}
}

// Lifespan returns a startup/shutdown hook for this server's resources.
func (s *Server) Lifespan() *Lifespan {
	if s == nil {
		return &Lifespan{}
	}
	return &Lifespan{events: s.events}
}

// Start verifies the event journal and launches background monitoring.
func (l *Lifespan) Start(ctx context.Context) error {
	if l == nil {
		return fmt.Errorf("lifespan is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if l.events != nil {
		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Lifespan)
		defer cancel()
		if err := l.events.Ping(pingCtx); err != nil {
			return fmt.Errorf("ping event journal: %w", err)
		}
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.monitor(monitorCtx)
	return nil
}

// Stop halts background monitoring and waits for it to exit.
func (l *Lifespan) Stop(ctx context.Context) error {
	if l == nil || l.cancel == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// monitor periodically checks journal health. Failures are logged but never
// terminate the host server; individual requests surface journal errors on
// their own.
func (l *Lifespan) monitor(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.events == nil {
				continue
			}
			callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := l.events.Ping(callCtx)
			cancel()
			if err != nil {
				log.Printf("event journal health check failed: %v", err)
			}
		}
	}
}
