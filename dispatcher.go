package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventTag enumerates lifecycle event kinds.
type EventTag string

const (
	EventInserted EventTag = "inserted"
	EventVerified EventTag = "verified"
	EventUpdated  EventTag = "updated"
	EventDeleted  EventTag = "deleted"
)

// Field discriminates what an EventUpdated touched.
type Field string

const (
	FieldPassword           Field = "password"
	FieldEmail              Field = "email"
	FieldProfile            Field = "profile"
	FieldStatus             Field = "status"
	FieldResetRequest       Field = "reset_request"
	FieldEmailChangeRequest Field = "email_change_request"
)

// ActorRef identifies who triggered an operation.
type ActorRef struct {
	ID    uuid.UUID
	Type  string
	Roles []Role
}

// SystemActor is the actor for unauthenticated or internal operations.
func SystemActor() ActorRef {
	return ActorRef{Type: "system"}
}

// UserActor builds an actor ref for an authenticated account.
func UserActor(id uuid.UUID, roles ...Role) ActorRef {
	return ActorRef{ID: id, Type: "user", Roles: roles}
}

// Event is a transient lifecycle notification. It carries the resulting
// account snapshot plus whatever the delivery handlers need: the prior email
// on an address change, the freshly minted token on the link-mail flows.
// Events are consumed in-process and never persisted.
type Event struct {
	Tag        EventTag
	Field      Field
	Actor      ActorRef
	User       *User
	PriorEmail string
	NewEmail   string
	Token      string
	OccurredAt time.Time
}

// EventHandler consumes a single event. A returned error is logged and
// swallowed, never propagated to the request that produced the event.
type EventHandler func(ctx context.Context, evt Event) error

// Dispatcher decouples state transitions from their side effects. Handlers
// are registered once at process wiring time; dispatch is fire-and-forget,
// at-most-once, and does not survive process restarts.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventTag][]EventHandler
	logger   Logger
	wg       sync.WaitGroup
}

// DispatcherOption customizes the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger overrides the logger used for handler failures.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[EventTag][]EventHandler),
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Subscribe registers a handler for a tag. Multiple handlers per tag are
// invoked independently.
func (d *Dispatcher) Subscribe(tag EventTag, h EventHandler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[tag] = append(d.handlers[tag], h)
}

// Dispatch fans the event out to every handler on its own goroutine. The
// inbound request context is detached first: once the primary mutation has
// committed, cancelling the request must not cancel its notifications.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	if evt.Actor.Type == "" {
		evt.Actor.Type = "system"
	}

	detached := context.WithoutCancel(ctx)

	d.mu.RLock()
	handlers := make([]EventHandler, len(d.handlers[evt.Tag]))
	copy(handlers, d.handlers[evt.Tag])
	d.mu.RUnlock()

	for _, h := range handlers {
		h := h
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := h(detached, evt); err != nil {
				d.logger.Warn("event handler error", "tag", evt.Tag, "field", evt.Field, "error", err)
			}
		}()
	}
}

// Wait blocks until every dispatched handler has returned. Intended for
// shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
