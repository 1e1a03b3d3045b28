package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewActionIDFormat(t *testing.T) {
	now := time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC)
	action, err := NewAction(ActionProgress, json.RawMessage(`{}`), now)
	if err != nil {
		t.Fatalf("new action: %v", err)
	}

	parts := strings.SplitN(action.ID, "_", 3)
	if len(parts) != 3 {
		t.Fatalf("id = %q, want type_timestamp_random", action.ID)
	}
	if parts[0] != "progress" {
		t.Fatalf("type part = %q, want progress", parts[0])
	}
	if parts[1] != fmt.Sprintf("%d", now.UnixMilli()) {
		t.Fatalf("timestamp part = %q, want %d", parts[1], now.UnixMilli())
	}
	if len(parts[2]) != 8 {
		t.Fatalf("random part = %q, want 8 characters", parts[2])
	}
	if action.MaxRetries != DefaultMaxRetries {
		t.Fatalf("maxRetries = %d, want %d", action.MaxRetries, DefaultMaxRetries)
	}
}

func TestNewActionRejectsUnknownType(t *testing.T) {
	if _, err := NewAction("push", nil, time.Now()); err == nil {
		t.Fatal("expected error for unknown action type")
	}
}

func TestPermanentClassification(t *testing.T) {
	base := errors.New("rejected")
	wrapped := Permanent(base)

	if !IsPermanent(wrapped) {
		t.Fatal("expected permanent marker")
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("expected wrapped error to unwrap")
	}
	if IsPermanent(base) {
		t.Fatal("plain error must not read as permanent")
	}
	if Permanent(nil) != nil {
		t.Fatal("permanent of nil must be nil")
	}
}
