package ports

import "context"

const (
	// EventExecutionCompleted carries the final ExecutionResult of a run that
	// reached the end of its plan.
	EventExecutionCompleted = "execution:completed"
	// EventExecutionFailed carries the final ExecutionResult of a run that
	// stopped early.
	EventExecutionFailed = "execution:failed"
	// EventPhaseCompleted is emitted after a phase handler returns cleanly.
	EventPhaseCompleted = "phase:completed"
	// EventPhaseFailed is emitted when a phase fails and the run continues.
	EventPhaseFailed = "phase:failed"
	// EventProgressUpdated carries a Progress snapshot before each phase.
	EventProgressUpdated = "progress:updated"
)

// DomainEvent is a significant occurrence within the application layer.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to subscribers. Dispatch is synchronous:
// Publish returns after every handler ran. Implementations must be
// thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes one event. Failures are returned, not panicked, so
// the publisher can log them and keep delivering.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler.
type Subscription interface {
	Unsubscribe()
}
