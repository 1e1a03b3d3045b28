package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wordtrail/wordtrail/internal/storage"
	"github.com/wordtrail/wordtrail/internal/telemetry"
)

// Replayer sends one queued action to the backend. It is supplied by the
// networking layer; the queue only interprets the error: nil removes the
// action, a Permanent error drops it, anything else retries it.
type Replayer interface {
	Replay(ctx context.Context, action Action) error
}

// ReplayerFunc adapts a function to the Replayer interface.
type ReplayerFunc func(ctx context.Context, action Action) error

// Replay implements Replayer for ReplayerFunc.
func (fn ReplayerFunc) Replay(ctx context.Context, action Action) error {
	return fn(ctx, action)
}

// LogReplayer logs actions instead of sending them; the default wiring until
// a transport is configured.
type LogReplayer struct{}

// Replay implements Replayer by logging the action.
func (LogReplayer) Replay(_ context.Context, action Action) error {
	log.Printf("queue: replaying %s (%s), payload %d bytes", action.ID, action.Type, len(action.Payload))
	return nil
}

// Queue is the durable offline action queue. Actions replay strictly in
// enqueue order; a flush is single-flight and the queue document is persisted
// after every mutation so restarts lose nothing.
type Queue struct {
	store    storage.DocumentStore
	keys     storage.Keys
	replayer Replayer
	online   func() bool
	emitter  *telemetry.Emitter
	clock    func() time.Time
	logf     func(string, ...any)

	mu       sync.Mutex
	actions  []Action
	flushing bool
}

// New loads the persisted queue document and returns the queue. A malformed
// or missing document starts empty.
func New(ctx context.Context, store storage.DocumentStore, keys storage.Keys, replayer Replayer, online func() bool, emitter *telemetry.Emitter) *Queue {
	q := &Queue{
		store:    store,
		keys:     keys,
		replayer: replayer,
		online:   online,
		emitter:  emitter,
		clock:    time.Now,
		logf:     log.Printf,
	}
	if q.replayer == nil {
		q.replayer = LogReplayer{}
	}
	if q.online == nil {
		q.online = func() bool { return true }
	}
	q.load(ctx)
	return q
}

// Enqueue appends a mutation, persists the queue, and schedules an immediate
// flush when online.
func (q *Queue) Enqueue(ctx context.Context, actionType ActionType, payload json.RawMessage) (Action, error) {
	action, err := NewAction(actionType, payload, q.clock())
	if err != nil {
		return Action{}, err
	}

	q.mu.Lock()
	q.actions = append(q.actions, action)
	persistErr := q.persistLocked(ctx)
	shouldFlush := q.online() && !q.flushing
	q.mu.Unlock()

	if persistErr != nil {
		q.logf("queue: persist after enqueue: %v", persistErr)
	}
	if shouldFlush {
		go func() {
			if err := q.Flush(context.Background()); err != nil {
				q.logf("queue: auto flush: %v", err)
			}
		}()
	}
	return action, nil
}

// Flush replays every queued action in enqueue order. It is a no-op while
// offline or while another flush is in flight; concurrent calls coalesce.
func (q *Queue) Flush(ctx context.Context) error {
	if !q.online() {
		return nil
	}

	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return nil
	}
	q.flushing = true
	pending := make([]Action, len(q.actions))
	copy(pending, q.actions)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	var remaining []Action
	succeeded := 0
	for _, action := range pending {
		if err := ctx.Err(); err != nil {
			// Keep everything not yet attempted.
			remaining = append(remaining, action)
			continue
		}

		err := q.replayer.Replay(ctx, action)
		if err == nil {
			succeeded++
			continue
		}
		if IsPermanent(err) {
			q.report(ctx, action, fmt.Sprintf("dropped after permanent failure: %v", err))
			continue
		}
		action.RetryCount++
		if action.RetryCount >= action.MaxRetries {
			q.report(ctx, action, fmt.Sprintf("dropped after %d retries: %v", action.MaxRetries, err))
			continue
		}
		remaining = append(remaining, action)
	}

	q.mu.Lock()
	// Actions enqueued during the pass are preserved behind the survivors.
	q.actions = append(remaining, q.actions[len(pending):]...)
	persistErr := q.persistLocked(ctx)
	q.mu.Unlock()

	if persistErr != nil {
		q.logf("queue: persist after flush: %v", persistErr)
	}
	if succeeded > 0 {
		q.recordLastSync(ctx)
	}
	return nil
}

// Len reports the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Stats exposes the passive offline indicator: pending count and the time of
// the last flush that replayed at least one action.
func (q *Queue) Stats(ctx context.Context) (pending int, lastSync time.Time) {
	q.mu.Lock()
	pending = len(q.actions)
	q.mu.Unlock()

	body, err := q.store.Get(ctx, q.keys.LastSyncTime)
	if err != nil {
		return pending, time.Time{}
	}
	var ms int64
	if err := storage.UnmarshalDocument(body, &ms); err != nil {
		return pending, time.Time{}
	}
	return pending, time.UnixMilli(ms).UTC()
}

func (q *Queue) load(ctx context.Context) {
	body, err := q.store.Get(ctx, q.keys.OfflineQueue)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			q.logf("queue: load: %v", err)
		}
		return
	}
	var actions []Action
	if err := storage.UnmarshalDocument(body, &actions); err != nil {
		q.logf("queue: reset malformed queue document: %v", err)
		return
	}
	q.actions = actions
}

func (q *Queue) persistLocked(ctx context.Context) error {
	body, err := storage.MarshalDocument(q.actions)
	if err != nil {
		return err
	}
	return q.store.Put(ctx, q.keys.OfflineQueue, body)
}

func (q *Queue) recordLastSync(ctx context.Context) {
	body, err := storage.MarshalDocument(q.clock().UnixMilli())
	if err != nil {
		q.logf("queue: marshal last sync: %v", err)
		return
	}
	if err := q.store.Put(ctx, q.keys.LastSyncTime, body); err != nil {
		q.logf("queue: record last sync: %v", err)
	}
}

func (q *Queue) report(ctx context.Context, action Action, message string) {
	q.logf("queue: action %s %s", action.ID, message)
	if err := q.emitter.Emit(ctx, telemetry.SeverityWarn, "queue",
		fmt.Sprintf("action %s (%s) %s", action.ID, action.Type, message)); err != nil {
		q.logf("queue: emit telemetry: %v", err)
	}
}
