// Package storage defines the persistence contracts shared by the sync core:
// a whole-document key/value store, the fixed key layout, the versioned JSON
// envelope, and the telemetry event sink.
package storage
