package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the enqueue-side interface handed to HTTP handlers and
// the scheduler, so neither depends on the Redis implementation.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig tunes the worker pool and retry policy.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the envelope stored in Redis. Payload survives a round trip
// through JSON, so jobs recover their concrete type with ParsePayload.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// ParsePayload recovers a typed payload. Directly enqueued values arrive
// as T or *T; values that went through Redis arrive as json.RawMessage or
// a generic map.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case map[string]interface{}:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("re-marshal payload map: %w", err)
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload map: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
