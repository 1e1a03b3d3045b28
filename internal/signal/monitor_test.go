package signal

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSetOnlineNotifiesAfterDebounce(t *testing.T) {
	m := NewMonitor(nil, time.Minute, 10*time.Millisecond)
	m.logf = func(string, ...any) {}

	var mu sync.Mutex
	var got []Kind
	m.Subscribe(func(kind Kind) {
		mu.Lock()
		got = append(got, kind)
		mu.Unlock()
	})

	m.SetOnline(false)
	m.SetOnline(true)

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("events = %v, want offline then online", got)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != KindOffline {
		t.Fatalf("first event = %v, want immediate offline", got[0])
	}
	if got[1] != KindOnline {
		t.Fatalf("second event = %v, want debounced online", got[1])
	}
}

func TestReconnectBlipIsCoalesced(t *testing.T) {
	m := NewMonitor(nil, time.Minute, 20*time.Millisecond)
	m.logf = func(string, ...any) {}

	var mu sync.Mutex
	online := 0
	m.Subscribe(func(kind Kind) {
		if kind == KindOnline {
			mu.Lock()
			online++
			mu.Unlock()
		}
	})

	// Flap within the debounce window: only one online notification may land.
	for range 5 {
		m.SetOnline(false)
		m.SetOnline(true)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if online != 1 {
		t.Fatalf("online notifications = %d, want 1 after flapping", online)
	}
}

func TestUnchangedStateDoesNotNotify(t *testing.T) {
	m := NewMonitor(nil, time.Minute, time.Millisecond)
	m.logf = func(string, ...any) {}

	notified := make(chan Kind, 10)
	m.Subscribe(func(kind Kind) { notified <- kind })

	m.SetOnline(true)
	m.SetOnline(true)

	select {
	case kind := <-notified:
		t.Fatalf("unexpected notification %v for unchanged state", kind)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestForegroundNotifiesSubscribers(t *testing.T) {
	m := NewMonitor(nil, time.Minute, time.Millisecond)

	notified := make(chan Kind, 1)
	m.Subscribe(func(kind Kind) { notified <- kind })

	m.Foreground()

	select {
	case kind := <-notified:
		if kind != KindForeground {
			t.Fatalf("kind = %v, want foreground", kind)
		}
	case <-time.After(time.Second):
		t.Fatal("expected foreground notification")
	}
}

func TestBackgroundCancelsPendingForeground(t *testing.T) {
	m := NewMonitor(nil, time.Minute, 20*time.Millisecond)

	notified := make(chan Kind, 1)
	m.Subscribe(func(kind Kind) { notified <- kind })

	m.Foreground()
	m.Background()

	select {
	case kind := <-notified:
		t.Fatalf("unexpected notification %v after backgrounding", kind)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	m := NewMonitor(nil, time.Minute, time.Millisecond)
	m.logf = func(string, ...any) {}

	notified := make(chan Kind, 10)
	unsubscribe := m.Subscribe(func(kind Kind) { notified <- kind })
	unsubscribe()

	m.SetOnline(false)

	select {
	case kind := <-notified:
		t.Fatalf("unexpected notification %v after unsubscribe", kind)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestRunPollsProber(t *testing.T) {
	var mu sync.Mutex
	probes := 0
	prober := ProberFunc(func(context.Context) bool {
		mu.Lock()
		probes++
		mu.Unlock()
		return true
	})

	m := NewMonitor(prober, 5*time.Millisecond, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := probes
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("probes = %d, want repeated polling", n)
		}
		time.Sleep(time.Millisecond)
	}
	if !m.Online() {
		t.Fatal("expected online after serving probe")
	}
}
