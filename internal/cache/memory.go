// Package cache provides the TTL caches backing the offline-first read path:
// a bounded in-memory cache and a best-effort persistent mirror.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 30 * time.Minute

type memoryEntry struct {
	value     any
	timestamp time.Time
	ttl       time.Duration
}

// Memory is a bounded in-memory TTL cache. When full it evicts the
// oldest-inserted entry. Eviction is insertion-order FIFO, not LRU; recency of
// access is deliberately ignored to keep Set/Get O(1) bookkeeping.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*memoryEntry
	order    []string
	clock    func() time.Time
}

// NewMemory creates a memory cache holding at most capacity entries.
// Non-positive capacities fall back to 100.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 100
	}
	return &Memory{
		capacity: capacity,
		entries:  make(map[string]*memoryEntry),
		clock:    time.Now,
	}
}

// Set stores value under key with the given ttl, capturing the current time.
// Overwriting a live key keeps its insertion slot; inserting at capacity
// evicts the oldest-inserted entry first.
func (c *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = value
		existing.timestamp = c.clock()
		existing.ttl = ttl
		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &memoryEntry{value: value, timestamp: c.clock(), ttl: ttl}
	c.order = append(c.order, key)
}

// Get returns the live value under key. Expired entries are deleted eagerly
// and reported as absent.
func (c *Memory) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock().Sub(entry.timestamp) > entry.ttl {
		c.removeLocked(key)
		return nil, false
	}
	return entry.value, true
}

// Delete removes key if present.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear drops all entries.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	c.order = nil
}

// Len reports the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartSweep purges expired entries every interval until ctx ends.
func (c *Memory) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Memory) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	for key, entry := range c.entries {
		if now.Sub(entry.timestamp) > entry.ttl {
			c.removeLocked(key)
		}
	}
}

func (c *Memory) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
