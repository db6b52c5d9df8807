package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event represents the standard event envelope for all Kafka messages.
// All events published to Kafka MUST use this envelope format.
//
// Topic Naming Convention:
//
//	broker.<domain>.<action>
//	Examples: broker.orders.submitted, broker.orders.rejected
//
// Event types carry a version suffix ("order.submitted.v1"); breaking payload
// changes get a new version.
type Event struct {
	// EventID is a unique identifier for this event instance
	EventID string `json:"event_id"`

	// EventType describes the event in format: <domain>.<action>.v<version>
	EventType string `json:"event_type"`

	// OccurredAt is when the event actually happened (not when it was published)
	OccurredAt time.Time `json:"occurred_at"`

	// CorrelationID links the event to the host request that caused it
	CorrelationID string `json:"correlation_id,omitempty"`

	// Source identifies the service that produced this event
	Source string `json:"source"`

	Payload any `json:"payload"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, payload any) *Event {
	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    payload,
		Metadata:   make(map[string]string),
	}
}

// WithCorrelationID sets the correlation ID for request tracing
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds a metadata key-value pair
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// =============================================================================
// Topic Registry
// =============================================================================
// Published by: broker-etrade
// =============================================================================

const (
	// TopicOrderSubmitted is published when E*TRADE accepts an order
	// Payload: OrderSubmittedPayload
	TopicOrderSubmitted = "broker.orders.submitted"

	// TopicOrderRejected is published when an order is rejected locally or by E*TRADE
	// Payload: OrderRejectedPayload
	TopicOrderRejected = "broker.orders.rejected"

	// TopicSessionAuthenticated is published when the broker session obtains an access token
	// Payload: SessionAuthenticatedPayload
	TopicSessionAuthenticated = "broker.session.authenticated"
)

// AllTopics returns all registered topics for admin/setup purposes
var AllTopics = []string{
	TopicOrderSubmitted,
	TopicOrderRejected,
	TopicSessionAuthenticated,
}

const (
	EventTypeOrderSubmitted       = "order.submitted.v1"
	EventTypeOrderRejected        = "order.rejected.v1"
	EventTypeSessionAuthenticated = "session.authenticated.v1"
)

// Publisher publishes events to Kafka topics
type Publisher interface {
	// Publish sends an event to the specified topic
	Publish(ctx context.Context, topic string, event *Event) error

	// Close closes the publisher and releases resources
	Close() error
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, event *Event) error { return nil }

func (NopPublisher) Close() error { return nil }
