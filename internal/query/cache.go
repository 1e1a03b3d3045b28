// Package query caches the results of keyed fetch operations with
// per-entry staleness and garbage-collection horizons, coalescing duplicate
// fetches and honoring the offline-first contract: cache hit or queued write,
// never a hard failure while offline.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/wordtrail/wordtrail/internal/queue"
	"golang.org/x/sync/singleflight"
)

// ErrOffline reports a cache miss while connectivity is absent. Cached data,
// stale or not, is always served in preference to this error.
var ErrOffline = errors.New("offline and not cached")

// Defaults applied when an Options field is zero.
const (
	DefaultStaleTime      = time.Minute
	DefaultGCTime         = 10 * time.Minute
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
)

// FetchFunc loads the value for a key from its source of truth.
type FetchFunc func(ctx context.Context) (any, error)

// Options tunes one fetch: staleness window, GC window, and retry policy.
type Options struct {
	StaleTime      time.Duration
	GCTime         time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func (o Options) normalized() Options {
	if o.StaleTime <= 0 {
		o.StaleTime = DefaultStaleTime
	}
	if o.GCTime <= 0 {
		o.GCTime = DefaultGCTime
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return o
}

// Enqueuer is the slice of the offline queue the mutation path needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, actionType queue.ActionType, payload json.RawMessage) (queue.Action, error)
}

type entry struct {
	data      any
	fetchedAt time.Time
	staleTime time.Duration
	gcTime    time.Duration
	stale     bool
}

// Cache deduplicates and caches keyed fetches.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	online  func() bool
	queue   Enqueuer
	clock   func() time.Time
	logf    func(string, ...any)
}

// New creates a query cache. online reports connectivity (nil means always
// online); enqueuer receives writes attempted while offline.
func New(online func() bool, enqueuer Enqueuer) *Cache {
	if online == nil {
		online = func() bool { return true }
	}
	return &Cache{
		entries: make(map[string]*entry),
		online:  online,
		queue:   enqueuer,
		clock:   time.Now,
		logf:    log.Printf,
	}
}

// Fetch returns the value for key. Fresh cache hits are served directly;
// stale hits are served while a background refetch runs; misses fetch with
// bounded exponential backoff. While offline, whatever is cached is served
// unconditionally and a miss yields ErrOffline.
func (c *Cache) Fetch(ctx context.Context, key string, fn FetchFunc, opts Options) (any, error) {
	opts = opts.normalized()
	now := c.clock()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && now.Sub(e.fetchedAt) > e.gcTime {
		delete(c.entries, key)
		e, ok = nil, false
	}
	if ok {
		data := e.data
		fresh := !e.stale && now.Sub(e.fetchedAt) <= e.staleTime
		c.mu.Unlock()

		if fresh || !c.online() {
			return data, nil
		}
		// Serve the stale value now; refresh in the background.
		go func() {
			if _, err := c.refetch(context.Background(), key, fn, opts); err != nil {
				c.logf("query: background refetch %s: %v", key, err)
			}
		}()
		return data, nil
	}
	c.mu.Unlock()

	if !c.online() {
		return nil, fmt.Errorf("fetch %s: %w", key, ErrOffline)
	}
	return c.refetch(ctx, key, fn, opts)
}

// Prefetch populates the cache for key without blocking the caller.
func (c *Cache) Prefetch(key string, fn FetchFunc, opts Options) {
	go func() {
		if _, err := c.Fetch(context.Background(), key, fn, opts); err != nil {
			c.logf("query: prefetch %s: %v", key, err)
		}
	}()
}

// Invalidate marks entries matching pattern stale so the next access
// refetches instead of serving cached data. A trailing "*" matches by
// prefix; anything else matches exactly.
func (c *Cache) Invalidate(pattern string) {
	prefix, wildcard := strings.CutSuffix(pattern, "*")

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if wildcard && strings.HasPrefix(key, prefix) {
			e.stale = true
		} else if !wildcard && key == pattern {
			e.stale = true
		}
	}
}

// Mutate runs fn under the fetch retry policy when online; while offline the
// mutation is delegated to the offline queue instead of being attempted. The
// returned action is the queued one, zero when fn ran directly.
func (c *Cache) Mutate(ctx context.Context, actionType queue.ActionType, payload json.RawMessage, fn FetchFunc, opts Options) (any, queue.Action, error) {
	opts = opts.normalized()

	if !c.online() {
		if c.queue == nil {
			return nil, queue.Action{}, fmt.Errorf("mutate %s: offline and no queue configured", actionType)
		}
		action, err := c.queue.Enqueue(ctx, actionType, payload)
		if err != nil {
			return nil, queue.Action{}, fmt.Errorf("queue offline mutation: %w", err)
		}
		return nil, action, nil
	}

	result, err := c.retry(ctx, fn, opts)
	if err != nil {
		return nil, queue.Action{}, err
	}
	return result, queue.Action{}, nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartGC evicts entries past their GC window every interval until ctx ends.
func (c *Cache) StartGC(ctx context.Context, interval time.Duration) {
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
				c.collect()
			}
		}
	}()
}

func (c *Cache) collect() {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) > e.gcTime {
			delete(c.entries, key)
		}
	}
}

// refetch coalesces concurrent fetches of one key into a single execution.
func (c *Cache) refetch(ctx context.Context, key string, fn FetchFunc, opts Options) (any, error) {
	result, err, _ := c.group.Do(key, func() (any, error) {
		data, err := c.retry(ctx, fn, opts)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = &entry{
			data:      data,
			fetchedAt: c.clock(),
			staleTime: opts.StaleTime,
			gcTime:    opts.GCTime,
		}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Cache) retry(ctx context.Context, fn FetchFunc, opts Options) (any, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.RetryBaseDelay
	expo.MaxInterval = opts.RetryMaxDelay
	expo.Multiplier = 2

	return backoff.Retry(ctx,
		func() (any, error) { return fn(ctx) },
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(opts.RetryAttempts)),
	)
}
