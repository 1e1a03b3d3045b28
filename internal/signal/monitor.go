// Package signal observes backend connectivity and app-foreground transitions
// and notifies the components that react to them (queue flush, query refetch).
package signal

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wordtrail/wordtrail/internal/platform/timeouts"
)

// Kind identifies the transition a subscriber is being told about.
type Kind string

const (
	// KindOnline fires on an offline-to-online connectivity transition.
	KindOnline Kind = "online"
	// KindOffline fires on an online-to-offline connectivity transition.
	KindOffline Kind = "offline"
	// KindForeground fires when the embedding app returns to the foreground.
	KindForeground Kind = "foreground"
)

// Prober reports whether the backend is currently reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) bool

// Probe implements Prober for ProberFunc.
func (fn ProberFunc) Probe(ctx context.Context) bool { return fn(ctx) }

// StatusFunc is the snapshot form consumed by the query cache and the queue.
type StatusFunc func() bool

// Monitor polls a Prober for connectivity and forwards transitions to
// subscribers. Online and foreground notifications are debounced so a flaky
// reconnect blip does not trigger a flush storm.
type Monitor struct {
	prober   Prober
	interval time.Duration
	debounce time.Duration

	mu      sync.Mutex
	online  bool
	nextID  int
	subs    map[int]func(Kind)
	pending *time.Timer
	logf    func(string, ...any)
}

// NewMonitor creates a monitor around prober. The initial state is online so
// a cold start without a probe yet behaves optimistically; the first poll
// corrects it.
func NewMonitor(prober Prober, pollInterval, debounce time.Duration) *Monitor {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	if debounce <= 0 {
		debounce = timeouts.FlushDebounce
	}
	return &Monitor{
		prober:   prober,
		interval: pollInterval,
		debounce: debounce,
		online:   true,
		subs:     make(map[int]func(Kind)),
		logf:     log.Printf,
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for transition notifications and returns its
// unsubscribe function.
func (m *Monitor) Subscribe(fn func(Kind)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Run polls the prober until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// Foreground records an app-foreground transition and notifies subscribers
// after the debounce delay.
func (m *Monitor) Foreground() {
	m.notifyDebounced(KindForeground)
}

// Background records the app leaving the foreground. Any pending debounced
// notification is cancelled, so a quick background/foreground blip delivers
// nothing and a backgrounded app triggers no flush.
func (m *Monitor) Background() {
	m.mu.Lock()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.mu.Unlock()
}

// SetOnline forces the connectivity state, primarily for embedding apps that
// receive reachability callbacks from the platform instead of polling.
func (m *Monitor) SetOnline(online bool) {
	m.transition(online)
}

func (m *Monitor) poll(ctx context.Context) {
	if m.prober == nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeouts.ConnectivityProbe)
	defer cancel()
	m.transition(m.prober.Probe(probeCtx))
}

func (m *Monitor) transition(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	m.mu.Unlock()

	if was == online {
		return
	}
	if online {
		m.logf("signal: connectivity restored")
		m.notifyDebounced(KindOnline)
		return
	}
	m.logf("signal: connectivity lost")
	m.notifyNow(KindOffline)
}

// notifyDebounced coalesces rapid transitions: each new event resets the
// timer, so only the state that survives the debounce window is delivered.
func (m *Monitor) notifyDebounced(kind Kind) {
	m.mu.Lock()
	if m.pending != nil {
		m.pending.Stop()
	}
	m.pending = time.AfterFunc(m.debounce, func() {
		m.notifyNow(kind)
	})
	m.mu.Unlock()
}

func (m *Monitor) notifyNow(kind Kind) {
	m.mu.Lock()
	subs := make([]func(Kind), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(kind)
	}
}
