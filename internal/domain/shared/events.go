package shared

import (
	"sync"
	"time"
)

// DomainEvent represents an event that has occurred in the domain
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// EventDispatcher dispatches domain events to handlers
type EventDispatcher interface {
	Dispatch(event DomainEvent) error
	Register(eventName string, handler EventHandler)
}

// EventHandler handles domain events
type EventHandler func(event DomainEvent) error

// SyncDispatcher calls registered handlers in registration order on the
// dispatching goroutine. The first handler error is returned after all
// handlers have run.
type SyncDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewSyncDispatcher creates an empty dispatcher
func NewSyncDispatcher() *SyncDispatcher {
	return &SyncDispatcher{handlers: make(map[string][]EventHandler)}
}

// Register adds a handler for the named event
func (d *SyncDispatcher) Register(eventName string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// Dispatch delivers event to its handlers
func (d *SyncDispatcher) Dispatch(event DomainEvent) error {
	d.mu.RLock()
	handlers := d.handlers[event.EventName()]
	d.mu.RUnlock()

	var first error
	for _, h := range handlers {
		if err := h(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NopDispatcher drops every event
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(DomainEvent) error    { return nil }
func (NopDispatcher) Register(string, EventHandler) {}
