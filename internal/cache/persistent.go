package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/wordtrail/wordtrail/internal/storage"
)

// Entry is the serialized form of a persistent cache value.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// Persistent mirrors the TTL cache contract onto the document store under the
// configured cache prefix. It is a best-effort accelerator: storage failures
// are logged and degrade to a miss (Get) or a no-op (Set/Delete/Clear), never
// a propagated error.
type Persistent struct {
	store storage.DocumentStore
	keys  storage.Keys
	clock func() time.Time
	logf  func(string, ...any)
}

// NewPersistent creates a persistent cache over store, namespaced by keys.
func NewPersistent(store storage.DocumentStore, keys storage.Keys) *Persistent {
	return &Persistent{store: store, keys: keys, clock: time.Now, logf: log.Printf}
}

// Set serializes value under the cache prefix with the given ttl.
func (c *Persistent) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logf("cache: marshal %s: %v", key, err)
		return
	}
	body, err := storage.MarshalDocument(Entry{
		Data:      data,
		Timestamp: c.clock().UnixMilli(),
		TTL:       ttl.Milliseconds(),
	})
	if err != nil {
		c.logf("cache: envelope %s: %v", key, err)
		return
	}
	if err := c.store.Put(ctx, c.keys.CachePrefix+key, body); err != nil {
		c.logf("cache: persist %s: %v", key, err)
	}
}

// Get decodes the live value under key into target and reports a hit.
// Expired entries are deleted eagerly and reported as a miss.
func (c *Persistent) Get(ctx context.Context, key string, target any) bool {
	body, err := c.store.Get(ctx, c.keys.CachePrefix+key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logf("cache: read %s: %v", key, err)
		}
		return false
	}

	var entry Entry
	if err := storage.UnmarshalDocument(body, &entry); err != nil {
		c.logf("cache: decode %s: %v", key, err)
		c.Delete(ctx, key)
		return false
	}
	age := c.clock().UnixMilli() - entry.Timestamp
	if age > entry.TTL {
		c.Delete(ctx, key)
		return false
	}
	if err := json.Unmarshal(entry.Data, target); err != nil {
		c.logf("cache: decode %s data: %v", key, err)
		return false
	}
	return true
}

// Delete removes the entry under key.
func (c *Persistent) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, c.keys.CachePrefix+key); err != nil {
		c.logf("cache: delete %s: %v", key, err)
	}
}

// Clear drops every entry under the cache prefix.
func (c *Persistent) Clear(ctx context.Context) {
	if _, err := c.store.DeletePrefix(ctx, c.keys.CachePrefix); err != nil {
		c.logf("cache: clear: %v", err)
	}
}
