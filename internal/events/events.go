package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tourdesk/internal/models"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
	EventBookingDeleted   = "booking_deleted"
)

// BookingEvents lists every booking lifecycle event type.
var BookingEvents = []string{EventBookingCreated, EventBookingUpdated, EventBookingCancelled, EventBookingDeleted}

// BookingEventPayload is the booking snapshot delivered to subscribers. For
// hard deletes Booking holds the row as it was before removal.
type BookingEventPayload struct {
	BookingID   int64                  `json:"booking_id"`
	Booking     *models.BookingDetails `json:"booking,omitempty"`
	HardDelete  bool                   `json:"hard_delete,omitempty"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	ChangedByID int64                  `json:"changed_by_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	}
}

// SubscribeBooking registers a handler that receives decoded booking payloads.
func (b *EventBus) SubscribeBooking(handler func(eventType string, payload BookingEventPayload) error, eventTypes ...string) {
	b.Subscribe(func(event *Event) error {
		var payload BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		return handler(event.Type, payload)
	}, eventTypes...)
}

// Publish runs every handler of the event type in registration order. All
// handlers run even when some fail; their errors are joined.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
