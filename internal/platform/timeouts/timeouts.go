// Package timeouts defines shared timeout constants used across the sync
// runtime. Centralizing these values prevents drift between components and
// makes the durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ConnectivityProbe caps a single backend reachability check issued by the
// network signal monitor.
const ConnectivityProbe = 2 * time.Second

// FlushDebounce delays queue flushes after a connectivity or foreground
// transition so a flaky reconnect blip does not trigger a flush storm.
const FlushDebounce = 500 * time.Millisecond

// Shutdown limits how long the runtime waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
