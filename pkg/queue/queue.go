package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the producer-side surface: everything a component
// needs to hand a message off for asynchronous processing.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// MessageHandler processes one dequeued payload.
type MessageHandler func(context.Context, interface{}) error

// QueueConfig bounds the consumer side of a queue.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int           // attempts before dead-lettering
	RetryDelay time.Duration // wait between attempts
}

// Message is the wire envelope stored in Redis. Attempts counts
// deliveries that ended in a handler error.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// ParsePayload converts whatever shape the payload survived transport
// in (typed value, decoded map, raw JSON) into *T.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case map[string]interface{}:
		jsonData, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal map to json: %w", err)
		}
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal json to struct: %w", err)
		}
		return &result, nil
	case []interface{}:
		jsonData, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal slice to json: %w", err)
		}
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal json to struct slice: %w", err)
		}
		return &result, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
