// Package keymutex serializes access to named resources. The document store
// treats a whole document as the unit of consistency, so every
// read-modify-write of a given key must hold that key's mutex to avoid
// last-writer-wins lost updates.
package keymutex

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Mutex hands out one mutex per key on demand and reclaims idle entries.
type Mutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty per-key mutex set.
func New() *Mutex {
	return &Mutex{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (m *Mutex) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}
}
