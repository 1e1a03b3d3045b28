// Package notify fans reward events out to interested UI surfaces.
package notify

import (
	"log"
	"sync"
)

// EventType classifies a reward notification.
type EventType string

const (
	EventXP      EventType = "xp"
	EventBadge   EventType = "badge"
	EventQuest   EventType = "quest"
	EventLevelUp EventType = "levelup"
)

// Event carries the payload a UI surface needs to render a reward toast.
type Event struct {
	Type        EventType
	Title       string
	Description string
	XPAmount    int
	Icon        string
	Rarity      string
}

// Broker delivers events to an ordered list of subscribers. Delivery is
// synchronous and in subscription order. When nobody is subscribed the event
// is dropped and logged; rewards are persisted regardless of listeners.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
	logf   func(string, ...any)
}

type subscription struct {
	id int
	fn func(Event)
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{logf: log.Printf}
}

// Subscribe registers fn and returns its unsubscribe function. Unsubscribe is
// idempotent.
func (b *Broker) Subscribe(fn func(Event)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers evt to every subscriber in order.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	if len(subs) == 0 {
		if b.logf != nil {
			b.logf("notify: dropping %s event %q, no subscribers", evt.Type, evt.Title)
		}
		return
	}
	for _, sub := range subs {
		sub.fn(evt)
	}
}
