package storage

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion tags every persisted document so future field additions can
// migrate old payloads instead of silently defaulting them.
const SchemaVersion = 1

type envelope struct {
	Schema int             `json:"schema"`
	Data   json.RawMessage `json:"data"`
}

// MarshalDocument wraps value in the versioned document envelope.
func MarshalDocument(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal document data: %w", err)
	}
	body, err := json.Marshal(envelope{Schema: SchemaVersion, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal document envelope: %w", err)
	}
	return body, nil
}

// UnmarshalDocument decodes a versioned document body into target. A body
// with an unknown schema version or malformed JSON yields an error; callers
// treat that as entity-absent and reinitialize defaults.
func UnmarshalDocument(body []byte, target any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal document envelope: %w", err)
	}
	if env.Schema != SchemaVersion {
		return fmt.Errorf("unsupported document schema %d", env.Schema)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("unmarshal document data: %w", err)
	}
	return nil
}
