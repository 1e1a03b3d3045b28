package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/wordtrail/wordtrail/internal/storage"
)

type recordingTelemetryStore struct {
	events []storage.TelemetryEvent
}

func (s *recordingTelemetryStore) AppendTelemetryEvent(_ context.Context, evt storage.TelemetryEvent) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingTelemetryStore) ListTelemetryEvents(context.Context, int) ([]storage.TelemetryEvent, error) {
	return s.events, nil
}

func TestEmitRecordsEventWithClockTimestamp(t *testing.T) {
	store := &recordingTelemetryStore{}
	emitter := NewEmitter(store)
	fixed := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	emitter.clock = func() time.Time { return fixed }

	if err := emitter.Emit(context.Background(), SeverityWarn, "queue", "action dropped"); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(store.events) != 1 {
		t.Fatalf("events len = %d, want 1", len(store.events))
	}
	evt := store.events[0]
	if evt.Severity != "WARN" || evt.Source != "queue" || evt.Message != "action dropped" {
		t.Fatalf("event = %+v, want recorded fields", evt)
	}
	if !evt.Timestamp.Equal(fixed) {
		t.Fatalf("timestamp = %v, want %v", evt.Timestamp, fixed)
	}
}

func TestEmitWithoutStoreIsNoop(t *testing.T) {
	var emitter *Emitter
	if err := emitter.Emit(context.Background(), SeverityInfo, "test", "ignored"); err != nil {
		t.Fatalf("nil emitter emit: %v", err)
	}
	if err := NewEmitter(nil).Emit(context.Background(), SeverityInfo, "test", "ignored"); err != nil {
		t.Fatalf("nil store emit: %v", err)
	}
}
