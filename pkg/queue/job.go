package queue

import "context"

// Job is a registered handler for one message type. The repricing job is
// the primary implementation; its payload carries who requested the cycle
// and whether it is a dry run.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one dequeued payload.
	Handle(ctx context.Context, payload interface{}) error
}
