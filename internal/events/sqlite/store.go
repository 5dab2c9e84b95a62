// Package sqlite provides a SQLite-backed webhook event journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/events/sqlite/migrations"
	sqlitemigrate "github.com/gantrylabs/gantry/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists webhook events in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite event journal and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append records one webhook event.
func (s *Store) Append(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(event.ID)
	source := strings.TrimSpace(event.Source)
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	if source == "" {
		return fmt.Errorf("event source is required")
	}
	payload := []byte(event.Payload)
	if len(payload) == 0 {
		// Empty payloads round-trip as JSON null.
		payload = []byte("null")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO webhook_events (id, source, event_type, payload, received_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id,
		source,
		event.Type,
		payload,
		toMillis(event.ReceivedAt),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Recent returns the newest events first, optionally filtered by source.
func (s *Store) Recent(ctx context.Context, filter events.Filter) ([]events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	limit := events.ClampLimit(filter.Limit)
	source := strings.TrimSpace(filter.Source)

	var (
		rows *sql.Rows
		err  error
	)
	if source == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, source, event_type, payload, received_at
			 FROM webhook_events
			 ORDER BY received_at DESC, id DESC
			 LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, source, event_type, payload, received_at
			 FROM webhook_events
			 WHERE source = ?
			 ORDER BY received_at DESC, id DESC
			 LIMIT ?`,
			source,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	list := make([]events.Event, 0, limit)
	for rows.Next() {
		var (
			event      events.Event
			payload    []byte
			receivedAt int64
		)
		if err := rows.Scan(
			&event.ID,
			&event.Source,
			&event.Type,
			&payload,
			&receivedAt,
		); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		event.Payload = payload
		event.ReceivedAt = fromMillis(receivedAt)
		list = append(list, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list, nil
}

// Get returns one event by id.
func (s *Store) Get(ctx context.Context, id string) (events.Event, error) {
	if err := ctx.Err(); err != nil {
		return events.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return events.Event{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return events.Event{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, source, event_type, payload, received_at
		 FROM webhook_events
		 WHERE id = ?`,
		id,
	)
	var (
		event      events.Event
		payload    []byte
		receivedAt int64
	)
	err := row.Scan(
		&event.ID,
		&event.Source,
		&event.Type,
		&payload,
		&receivedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("get event: %w", err)
	}
	event.Payload = payload
	event.ReceivedAt = fromMillis(receivedAt)
	return event, nil
}

// Stats summarizes the stored events.
func (s *Store) Stats(ctx context.Context) (events.Stats, error) {
	if err := ctx.Err(); err != nil {
		return events.Stats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return events.Stats{}, fmt.Errorf("storage is not configured")
	}

	stats := events.Stats{BySource: make(map[string]int64)}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(MIN(received_at), 0), COALESCE(MAX(received_at), 0)
		 FROM webhook_events`,
	)
	var oldest, newest int64
	if err := row.Scan(&stats.Total, &oldest, &newest); err != nil {
		return events.Stats{}, fmt.Errorf("event stats: %w", err)
	}
	if stats.Total > 0 {
		stats.Oldest = fromMillis(oldest)
		stats.Newest = fromMillis(newest)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT source, COUNT(*)
		 FROM webhook_events
		 GROUP BY source`,
	)
	if err != nil {
		return events.Stats{}, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			source string
			count  int64
		)
		if err := rows.Scan(&source, &count); err != nil {
			return events.Stats{}, fmt.Errorf("event stats: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return events.Stats{}, fmt.Errorf("event stats: %w", err)
	}
	return stats, nil
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

var _ events.Sink = (*Store)(nil)
