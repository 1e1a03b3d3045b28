// Package queue implements the durable offline action queue: a FIFO of
// pending mutations replayed against the backend when connectivity returns.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wordtrail/wordtrail/internal/platform/id"
)

// ActionType classifies a queued mutation.
type ActionType string

const (
	ActionProgress   ActionType = "progress"
	ActionCompletion ActionType = "completion"
	ActionAnalytics  ActionType = "analytics"
	ActionProfile    ActionType = "profile"
	ActionAuth       ActionType = "auth"
)

// DefaultMaxRetries bounds replay attempts per action.
const DefaultMaxRetries = 3

// Action is one pending mutation awaiting replay.
type Action struct {
	ID         string          `json:"id"`
	Type       ActionType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt int64           `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
}

// NewAction builds an action with a fresh type_timestamp_random identifier.
func NewAction(actionType ActionType, payload json.RawMessage, now time.Time) (Action, error) {
	if !validActionType(actionType) {
		return Action{}, fmt.Errorf("unknown action type %q", actionType)
	}
	suffix, err := id.NewID()
	if err != nil {
		return Action{}, fmt.Errorf("generate action id: %w", err)
	}
	return Action{
		ID:         fmt.Sprintf("%s_%d_%s", actionType, now.UnixMilli(), suffix[:8]),
		Type:       actionType,
		Payload:    payload,
		EnqueuedAt: now.UnixMilli(),
		MaxRetries: DefaultMaxRetries,
	}, nil
}

func validActionType(t ActionType) bool {
	switch t {
	case ActionProgress, ActionCompletion, ActionAnalytics, ActionProfile, ActionAuth:
		return true
	}
	return false
}

// permanentError marks a replay failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	if e == nil || e.err == nil {
		return "permanent replay error"
	}
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Permanent wraps err so the queue drops the action instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the terminal replay marker.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}
