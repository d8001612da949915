package model

import (
	"fmt"
	"slices"
	"time"
)

// Position is presentation-only canvas metadata. It never affects routing.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ExchangeType selects the routing algorithm of an exchange.
type ExchangeType string

const (
	ExchangeDirect ExchangeType = "direct"
	ExchangeFanout ExchangeType = "fanout"
	ExchangeTopic  ExchangeType = "topic"
)

// ExchangeTypes lists the supported exchange types in display order.
var ExchangeTypes = []ExchangeType{ExchangeDirect, ExchangeFanout, ExchangeTopic}

// Valid reports whether t is a supported exchange type.
func (t ExchangeType) Valid() bool {
	switch t {
	case ExchangeDirect, ExchangeFanout, ExchangeTopic:
		return true
	}
	return false
}

// ParseExchangeType converts a user-supplied string to an ExchangeType.
func ParseExchangeType(s string) (ExchangeType, error) {
	t := ExchangeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unsupported exchange type %q: must be one of %v", s, ExchangeTypes)
	}
	return t, nil
}

// Exchange receives published messages and forwards copies to bound queues.
type Exchange struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       ExchangeType `json:"type"`
	Position   Position     `json:"position"`
	BindingIDs []string     `json:"binding_ids"`
}

// QueueOptions holds the optional policy of a queue.
// Zero values mean "unset": no dead-letter queue, unbounded, no expiry.
type QueueOptions struct {
	DeadLetterQueueID string `json:"dead_letter_queue_id,omitempty"`
	MaxLength         int    `json:"max_length,omitempty"`
	MessageTTLMs      int64  `json:"message_ttl_ms,omitempty"`
}

// Queue is an ordered buffer of messages. Messages[0] is the head.
type Queue struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Position Position  `json:"position"`
	Messages []Message `json:"messages"`
	QueueOptions
	ConsumerIDs []string `json:"consumer_ids"`
}

// HasCapacityLimit reports whether the queue has a max length.
func (q Queue) HasCapacityLimit() bool { return q.MaxLength > 0 }

// HasTTL reports whether messages in the queue expire.
func (q Queue) HasTTL() bool { return q.MessageTTLMs > 0 }

// Consumer takes messages from exactly one queue.
type Consumer struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	QueueID           string   `json:"queue_id"`
	Position          Position `json:"position"`
	IsActive          bool     `json:"is_active"`
	ProcessedMessages int64    `json:"processed_messages"`
}

// Binding associates an exchange, a queue and a routing key pattern.
type Binding struct {
	ID         string `json:"id"`
	ExchangeID string `json:"exchange_id"`
	QueueID    string `json:"queue_id"`
	RoutingKey string `json:"routing_key"`
}

// MessageStatus is informational only. Where a message lives is decided by
// which queue holds it.
type MessageStatus string

const (
	StatusPublished MessageStatus = "published"
	StatusRouted    MessageStatus = "routed"
	StatusConsumed  MessageStatus = "consumed"
	StatusRejected  MessageStatus = "rejected"
	StatusDLQ       MessageStatus = "dlq"
)

// Message is a published payload. Copies delivered to several queues share
// the ID and are tracked independently.
type Message struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	RoutingKey string        `json:"routing_key"`
	Timestamp  time.Time     `json:"timestamp"`
	ExchangeID string        `json:"exchange_id"`
	Status     MessageStatus `json:"status"`
}

// WithStatus returns a copy of m carrying the given status.
func (m Message) WithStatus(s MessageStatus) Message {
	m.Status = s
	return m
}

// EventType names a kind of event in the log.
type EventType string

const (
	EventExchangeCreated     EventType = "exchange_created"
	EventQueueCreated        EventType = "queue_created"
	EventConsumerCreated     EventType = "consumer_created"
	EventBindingCreated      EventType = "binding_created"
	EventExchangeRenamed     EventType = "exchange_renamed"
	EventQueueRenamed        EventType = "queue_renamed"
	EventConsumerRenamed     EventType = "consumer_renamed"
	EventExchangeMoved       EventType = "exchange_moved"
	EventQueueMoved          EventType = "queue_moved"
	EventConsumerMoved       EventType = "consumer_moved"
	EventConsumerActivated   EventType = "consumer_activated"
	EventConsumerDeactivated EventType = "consumer_deactivated"
	EventExchangeDeleted     EventType = "exchange_deleted"
	EventQueueDeleted        EventType = "queue_deleted"
	EventConsumerDeleted     EventType = "consumer_deleted"
	EventMessagePublished    EventType = "message_published"
	EventMessageRouted       EventType = "message_routed"
	EventMessageConsumed     EventType = "message_consumed"
	EventMessageRejected     EventType = "message_rejected"
	EventMessageDLQ          EventType = "message_dlq"
	EventError               EventType = "error"
)

// EventTypes lists every event type in declaration order.
var EventTypes = []EventType{
	EventExchangeCreated, EventQueueCreated, EventConsumerCreated, EventBindingCreated,
	EventExchangeRenamed, EventQueueRenamed, EventConsumerRenamed,
	EventExchangeMoved, EventQueueMoved, EventConsumerMoved,
	EventConsumerActivated, EventConsumerDeactivated,
	EventExchangeDeleted, EventQueueDeleted, EventConsumerDeleted,
	EventMessagePublished, EventMessageRouted, EventMessageConsumed, EventMessageRejected, EventMessageDLQ,
	EventError,
}

// Valid reports whether t is an event type the engine emits.
func (t EventType) Valid() bool {
	return slices.Contains(EventTypes, t)
}

// Event is an immutable log record.
type Event struct {
	ID          string            `json:"id"`
	Seq         int64             `json:"seq"`
	Type        EventType         `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
}

// ComponentType identifies what kind of entity a flow is passing through.
type ComponentType string

const (
	ComponentExchange ComponentType = "exchange"
	ComponentQueue    ComponentType = "queue"
	ComponentConsumer ComponentType = "consumer"
)

// Flow is a transient visualization cue. It has no effect on routing.
type Flow struct {
	ID            string        `json:"id"`
	MessageID     string        `json:"message_id"`
	ComponentID   string        `json:"component_id"`
	ComponentType ComponentType `json:"component_type"`
	StartTime     int64         `json:"start_time"`
	Duration      int64         `json:"duration"`
}

// Expired reports whether the flow has ended at nowMs.
func (f Flow) Expired(nowMs int64) bool {
	return f.StartTime+f.Duration <= nowMs
}
