package events

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// LogFielder is implemented by payloads that know how to describe
// themselves as structured log fields.
type LogFielder interface {
	LogFields() []interface{}
}

// LoggingPublisher logs each event and then delivers it synchronously to
// every subscriber of its type.
type LoggingPublisher struct {
	logger ports.Logger
	subs   map[string][]subscriptionEntry
	nextID int
	mu     sync.RWMutex
	// quiet event types are logged at debug level.
	quiet map[string]bool
}

// NewLoggingPublisher creates a publisher. Progress updates are logged at
// debug level, lifecycle events at info.
func NewLoggingPublisher(logger ports.Logger) *LoggingPublisher {
	return &LoggingPublisher{
		logger: logger,
		subs:   make(map[string][]subscriptionEntry),
		quiet:  map[string]bool{ports.EventProgressUpdated: true},
	}
}

// Publish logs the event and runs its handlers in subscription order. A
// failing or panicking handler is logged and does not stop delivery.
func (p *LoggingPublisher) Publish(ctx context.Context, event ports.DomainEvent) error {
	if p == nil || event == nil {
		return nil
	}

	p.mu.RLock()
	handlers := append([]subscriptionEntry(nil), p.subs[event.EventType()]...)
	p.mu.RUnlock()

	if p.logger != nil {
		fields := append([]interface{}{"event_type", event.EventType()}, payloadFields(event.Payload())...)
		if p.quiet[event.EventType()] {
			p.logger.Debug(ctx, "domain event", fields...)
		} else {
			p.logger.Info(ctx, "domain event", fields...)
		}
	}

	for _, entry := range handlers {
		handler := entry.handler
		if handler == nil {
			continue
		}
		if err := deliver(ctx, handler, event); err != nil && p.logger != nil {
			p.logger.Warn(ctx, "event handler failed", "event_type", event.EventType(), "error", err)
		}
	}

	return nil
}

func deliver(ctx context.Context, handler ports.EventHandler, event ports.DomainEvent) (err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		err = handler(ctx, event)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return fmt.Errorf("handler panicked: %w", recovered.AsError())
	}
	return err
}

func payloadFields(payload interface{}) []interface{} {
	switch typed := payload.(type) {
	case nil:
		return nil
	case LogFielder:
		return typed.LogFields()
	case map[string]interface{}:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fields := make([]interface{}, 0, len(keys)*2)
		for _, key := range keys {
			fields = append(fields, key, typed[key])
		}
		return fields
	default:
		return []interface{}{"payload", typed}
	}
}

// Subscribe registers a handler for the provided event type.
func (p *LoggingPublisher) Subscribe(eventType string, handler ports.EventHandler) (ports.Subscription, error) {
	if p == nil || handler == nil {
		return noopSubscription{}, nil
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[eventType] = append(p.subs[eventType], subscriptionEntry{id: id, handler: handler})
	p.mu.Unlock()

	return subscription{
		cancel: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			handlers := p.subs[eventType]
			for i, entry := range handlers {
				if entry.id == id {
					p.subs[eventType] = append(handlers[:i:i], handlers[i+1:]...)
					break
				}
			}
		},
	}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriptionEntry struct {
	id      int
	handler ports.EventHandler
}

var _ ports.EventPublisher = (*LoggingPublisher)(nil)
