// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

const (
	// Face events
	EventMouthChanged EventType = "face.mouth_changed"
	EventBlinkStarted EventType = "face.blink_started"
	EventBlinkEnded   EventType = "face.blink_ended"

	// Playback events
	EventRunStarted  EventType = "lipsync.run_started"
	EventRunFinished EventType = "lipsync.run_finished"

	// Trigger availability
	EventTriggerDisabled EventType = "trigger.disabled"
	EventTriggerEnabled  EventType = "trigger.enabled"

	// User-visible notices
	EventNotification EventType = "notice.notification"

	// Runtime changes
	EventControlsChanged EventType = "runtime.controls_changed"
	EventAssetsReloaded  EventType = "runtime.assets_reloaded"
)

// AllEvents lists every event type, in declaration order.
var AllEvents = []EventType{
	EventMouthChanged,
	EventBlinkStarted,
	EventBlinkEnded,
	EventRunStarted,
	EventRunFinished,
	EventTriggerDisabled,
	EventTriggerEnabled,
	EventNotification,
	EventControlsChanged,
	EventAssetsReloaded,
}

// Event represents a bus event
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles events
type Handler func(Event)

// Publisher is the publishing half of the bus, accepted by producers.
type Publisher interface {
	Publish(Event)
}

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
}

type subscription struct {
	handle Handler
	inline bool // only enqueues, safe to call on the publisher's goroutine
}

// New creates a new event bus
func New() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscription),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.add(eventType, subscription{handle: handler})
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// SubscribeOrdered delivers eventTypes to handler on a single goroutine, in
// the order they were published. stop drains what is queued and ends
// delivery; later events are dropped.
func (b *EventBus) SubscribeOrdered(eventTypes []EventType, handler Handler) (stop func()) {
	q := newQueue()
	go q.run(handler)
	for _, et := range eventTypes {
		b.add(et, subscription{handle: q.push, inline: true})
	}
	return q.stop
}

func (b *EventBus) add(t EventType, s subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[t] = append(b.handlers[t], s)
}

func (b *EventBus) snapshot(t EventType) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := make([]subscription, len(b.handlers[t]))
	copy(subs, b.handlers[t])
	return subs
}

// Publish sends an event to all subscribed handlers without waiting for them.
func (b *EventBus) Publish(event Event) {
	for _, s := range b.snapshot(event.Type) {
		if s.inline {
			s.handle(event)
			continue
		}
		go s.handle(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete. Ordered
// subscribers only have the event queued.
func (b *EventBus) PublishSync(event Event) {
	var wg sync.WaitGroup
	for _, s := range b.snapshot(event.Type) {
		if s.inline {
			s.handle(event)
			continue
		}
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(s.handle)
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]subscription)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(Event) {}
