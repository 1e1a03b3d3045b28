package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetRoundTrip(t *testing.T) {
	c := NewMemory(10)

	c.Set("lesson:1", "bonjour", time.Minute)

	value, ok := c.Get("lesson:1")
	if !ok {
		t.Fatal("expected hit immediately after set")
	}
	if value != "bonjour" {
		t.Fatalf("value = %v, want bonjour", value)
	}
}

func TestMemoryExpiryPurgesOnRead(t *testing.T) {
	c := NewMemory(10)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c.clock = func() time.Time { return now }

	c.Set("lesson:1", "bonjour", time.Minute)

	now = now.Add(time.Minute + time.Millisecond)
	if _, ok := c.Get("lesson:1"); ok {
		t.Fatal("expected miss after ttl elapsed")
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d, want expired entry removed", c.Len())
	}
}

func TestMemoryEvictionIsFIFONotLRU(t *testing.T) {
	c := NewMemory(3)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	// Touch "a" repeatedly; under LRU it would be the safest entry, under
	// insertion-order FIFO it is still evicted first.
	for range 5 {
		if _, ok := c.Get("a"); !ok {
			t.Fatal("expected hit for a")
		}
	}

	c.Set("d", 4, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected oldest-inserted entry a to be evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("expected %s to survive eviction", key)
		}
	}
}

func TestMemoryOverwriteKeepsInsertionSlot(t *testing.T) {
	c := NewMemory(2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("a", 10, time.Minute)
	c.Set("c", 3, time.Minute)

	// "a" kept its original slot, so it is still the oldest insertion.
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be evicted despite recent overwrite")
	}
	value, ok := c.Get("b")
	if !ok || value != 2 {
		t.Fatalf("b = %v (%t), want surviving value 2", value, ok)
	}
}

func TestMemoryClear(t *testing.T) {
	c := NewMemory(10)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("len = %d, want 0 after clear", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after clear")
	}
}

func TestMemorySweepRemovesExpiredEntries(t *testing.T) {
	c := NewMemory(10)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c.clock = func() time.Time { return now }

	c.Set("stale", 1, time.Second)
	c.Set("fresh", 2, time.Hour)
	now = now.Add(time.Minute)

	c.sweep()

	if c.Len() != 1 {
		t.Fatalf("len = %d, want only fresh entry after sweep", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("expected fresh entry to survive sweep")
	}
}

func TestMemoryStartSweepStopsWithContext(t *testing.T) {
	c := NewMemory(10)
	ctx, cancel := context.WithCancel(context.Background())
	c.StartSweep(ctx, time.Millisecond)
	cancel()
	// Nothing to assert beyond the goroutine exiting without panic; give the
	// ticker a moment to observe cancellation.
	time.Sleep(5 * time.Millisecond)
}
