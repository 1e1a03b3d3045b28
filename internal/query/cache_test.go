package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wordtrail/wordtrail/internal/queue"
)

func fastOpts() Options {
	return Options{
		StaleTime:      time.Minute,
		GCTime:         time.Hour,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

func TestFetchCachesFreshResult(t *testing.T) {
	c := New(nil, nil)

	calls := 0
	fn := func(context.Context) (any, error) {
		calls++
		return "lessons", nil
	}

	for range 3 {
		got, err := c.Fetch(context.Background(), "lessons:fr", fn, fastOpts())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if got != "lessons" {
			t.Fatalf("got = %v, want lessons", got)
		}
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want single fetch for fresh entries", calls)
	}
}

func TestFetchRetriesWithBackoffThenSurfacesError(t *testing.T) {
	c := New(nil, nil)
	c.logf = func(string, ...any) {}

	attempts := 0
	fn := func(context.Context) (any, error) {
		attempts++
		return nil, errors.New("upstream down")
	}

	_, err := c.Fetch(context.Background(), "lessons:fr", fn, fastOpts())
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want bounded retries", attempts)
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d, want no entry cached on failure", c.Len())
	}
}

func TestStaleHitServesCachedAndRefetchesInBackground(t *testing.T) {
	c := New(nil, nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	c.clock = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		n := calls.Add(1)
		if n == 1 {
			return "v1", nil
		}
		return "v2", nil
	}

	opts := fastOpts()
	opts.StaleTime = time.Minute
	if _, err := c.Fetch(context.Background(), "vocab", fn, opts); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	got, err := c.Fetch(context.Background(), "vocab", fn, opts)
	if err != nil {
		t.Fatalf("stale fetch: %v", err)
	}
	if got != "v1" {
		t.Fatalf("got = %v, want stale value served immediately", got)
	}

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected background refetch")
		}
		time.Sleep(time.Millisecond)
	}

	deadline = time.Now().Add(time.Second)
	for {
		got, err = c.Fetch(context.Background(), "vocab", fn, opts)
		if err != nil {
			t.Fatalf("refreshed fetch: %v", err)
		}
		if got == "v2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got = %v, want refreshed value", got)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := New(nil, nil)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}

	if _, err := c.Fetch(context.Background(), "quests:daily", fn, fastOpts()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	c.Invalidate("quests:*")

	got, err := c.Fetch(context.Background(), "quests:daily", fn, fastOpts())
	if err != nil {
		t.Fatalf("fetch after invalidate: %v", err)
	}
	// Invalidation marks the entry stale: the old value is served once while
	// the background refetch replaces it.
	if got != 1 {
		t.Fatalf("got = %v, want stale value on first access", got)
	}

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected refetch after invalidation")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInvalidateExactKeyOnly(t *testing.T) {
	c := New(nil, nil)

	fn := func(context.Context) (any, error) { return "x", nil }
	if _, err := c.Fetch(context.Background(), "a", fn, fastOpts()); err != nil {
		t.Fatalf("fetch a: %v", err)
	}
	if _, err := c.Fetch(context.Background(), "ab", fn, fastOpts()); err != nil {
		t.Fatalf("fetch ab: %v", err)
	}

	c.Invalidate("a")

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.entries["a"].stale {
		t.Fatal("expected exact key marked stale")
	}
	if c.entries["ab"].stale {
		t.Fatal("expected non-matching key untouched")
	}
}

func TestOfflineServesCacheUnconditionally(t *testing.T) {
	online := true
	c := New(func() bool { return online }, nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c.clock = func() time.Time { return now }

	calls := 0
	fn := func(context.Context) (any, error) {
		calls++
		return "cached", nil
	}

	if _, err := c.Fetch(context.Background(), "profile", fn, fastOpts()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	online = false
	now = now.Add(30 * time.Minute) // well past staleness

	got, err := c.Fetch(context.Background(), "profile", fn, fastOpts())
	if err != nil {
		t.Fatalf("offline fetch: %v", err)
	}
	if got != "cached" {
		t.Fatalf("got = %v, want cached value while offline", got)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want no refetch while offline", calls)
	}
}

func TestOfflineMissReturnsErrOffline(t *testing.T) {
	c := New(func() bool { return false }, nil)

	_, err := c.Fetch(context.Background(), "missing", func(context.Context) (any, error) {
		t.Fatal("fetch function must not run while offline")
		return nil, nil
	}, fastOpts())
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("err = %v, want ErrOffline", err)
	}
}

type recordingEnqueuer struct {
	actions []queue.Action
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, actionType queue.ActionType, payload json.RawMessage) (queue.Action, error) {
	action, err := queue.NewAction(actionType, payload, time.Now())
	if err != nil {
		return queue.Action{}, err
	}
	e.actions = append(e.actions, action)
	return action, nil
}

func TestMutateOfflineDelegatesToQueue(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	c := New(func() bool { return false }, enqueuer)

	_, action, err := c.Mutate(context.Background(), queue.ActionProgress, json.RawMessage(`{"lesson":"fr-01"}`),
		func(context.Context) (any, error) {
			t.Fatal("mutation must not run while offline")
			return nil, nil
		}, fastOpts())
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if action.ID == "" {
		t.Fatal("expected queued action")
	}
	if len(enqueuer.actions) != 1 {
		t.Fatalf("queued = %d, want 1", len(enqueuer.actions))
	}
}

func TestMutateOnlineRunsDirectly(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	c := New(nil, enqueuer)

	result, action, err := c.Mutate(context.Background(), queue.ActionProgress, nil,
		func(context.Context) (any, error) { return "saved", nil }, fastOpts())
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if result != "saved" {
		t.Fatalf("result = %v, want saved", result)
	}
	if action.ID != "" {
		t.Fatal("expected no queued action when online")
	}
	if len(enqueuer.actions) != 0 {
		t.Fatalf("queued = %d, want 0", len(enqueuer.actions))
	}
}

func TestConcurrentFetchesCoalesce(t *testing.T) {
	c := New(nil, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "one", nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fetch(context.Background(), "dedup", fn, fastOpts()); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want single in-flight fetch", calls.Load())
	}
}

func TestGCEvictsExpiredEntriesRegardlessOfAccess(t *testing.T) {
	c := New(nil, nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c.clock = func() time.Time { return now }

	opts := fastOpts()
	opts.GCTime = 5 * time.Minute
	fn := func(context.Context) (any, error) { return "x", nil }
	if _, err := c.Fetch(context.Background(), "doomed", fn, opts); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	now = now.Add(10 * time.Minute)
	c.collect()

	if c.Len() != 0 {
		t.Fatalf("len = %d, want GC to evict expired entry", c.Len())
	}
}

func TestPrefetchPopulatesWithoutBlocking(t *testing.T) {
	c := New(nil, nil)

	fetched := make(chan struct{})
	c.Prefetch("ahead", func(context.Context) (any, error) {
		close(fetched)
		return "ready", nil
	}, fastOpts())

	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("expected prefetch to run")
	}

	deadline := time.Now().Add(time.Second)
	for c.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected prefetched entry")
		}
		time.Sleep(time.Millisecond)
	}
}
