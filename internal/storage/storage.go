package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested document is missing.
var ErrNotFound = errors.New("document not found")

// Document pairs a store key with its serialized body.
type Document struct {
	Key  string
	Body []byte
}

// DocumentStore persists whole JSON documents under string keys. A Put is an
// atomic whole-document overwrite; there is no field-level locking, so callers
// mutating a key concurrently must serialize read-modify-write themselves.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	ListPrefix(ctx context.Context, prefix string) ([]Document, error)
}

// TelemetryEvent records one operational event for observability.
type TelemetryEvent struct {
	Severity  string
	Source    string
	Message   string
	Timestamp time.Time
}

// TelemetryStore appends and lists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
	ListTelemetryEvents(ctx context.Context, limit int) ([]TelemetryEvent, error)
}
