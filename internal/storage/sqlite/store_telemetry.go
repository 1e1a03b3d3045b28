package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wordtrail/wordtrail/internal/storage"
)

// AppendTelemetryEvent persists one operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	evt.Severity = strings.TrimSpace(evt.Severity)
	evt.Source = strings.TrimSpace(evt.Source)
	evt.Message = strings.TrimSpace(evt.Message)
	if evt.Severity == "" {
		return fmt.Errorf("severity is required")
	}
	if evt.Source == "" {
		return fmt.Errorf("source is required")
	}
	if evt.Message == "" {
		return fmt.Errorf("message is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (severity, source, message, created_at)
VALUES (?, ?, ?, ?)
`, evt.Severity, evt.Source, evt.Message, evt.Timestamp.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

// ListTelemetryEvents lists newest-first telemetry events.
func (s *Store) ListTelemetryEvents(ctx context.Context, limit int) ([]storage.TelemetryEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT severity, source, message, created_at
FROM telemetry_events
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list telemetry events: %w", err)
	}
	defer rows.Close()

	events := make([]storage.TelemetryEvent, 0, limit)
	for rows.Next() {
		var evt storage.TelemetryEvent
		var createdAt int64
		if err := rows.Scan(&evt.Severity, &evt.Source, &evt.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		evt.Timestamp = time.UnixMilli(createdAt).UTC()
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry events: %w", err)
	}
	return events, nil
}
