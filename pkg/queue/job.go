package queue

import "context"

// Job consumes one message type from the queue. Name is a human-readable
// label for logs; Type is the routing key messages are matched on.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}
