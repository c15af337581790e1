package execution

import (
	"context"

	"github.com/sourcegraph/conc/panics"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

type domainEvent struct {
	eventType string
	payload   interface{}
}

func (e domainEvent) EventType() string {
	return e.eventType
}

func (e domainEvent) Payload() interface{} {
	return e.payload
}

// PhaseEvent is the payload of phase:completed and phase:failed.
type PhaseEvent struct {
	Phase    organize.Phase
	Duration int64
	Err      error
}

// LogFields summarises the event for structured logging.
func (e PhaseEvent) LogFields() []interface{} {
	fields := []interface{}{"phase", e.Phase, "duration_ms", e.Duration}
	if e.Err != nil {
		fields = append(fields, "error", e.Err)
	}
	return fields
}

// publish delivers an event to the publisher and, for progress snapshots,
// to the run's progress callback. Delivery failures never fail the run.
func (e *Engine) publish(ctx context.Context, callback organize.ProgressCallback, eventType string, payload interface{}) {
	if eventType == ports.EventProgressUpdated && callback != nil {
		if snapshot, ok := payload.(organize.Progress); ok {
			e.notify(ctx, callback, snapshot)
		}
	}

	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, domainEvent{eventType: eventType, payload: payload}); err != nil {
		e.logger.Warn(ctx, "failed to publish domain event", "event_type", eventType, "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, callback organize.ProgressCallback, snapshot organize.Progress) {
	var catcher panics.Catcher
	catcher.Try(func() { callback(snapshot) })
	if recovered := catcher.Recovered(); recovered != nil {
		e.logger.Warn(ctx, "progress callback panicked", "panic", recovered.Value)
	}
}
