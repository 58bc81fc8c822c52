// Package broker defines the wire format shared by every producer and
// consumer on the event fabric, and the topic layout used to route
// messages and their dead-lettered failures.
package broker

import (
	"encoding/json"
	"time"
)

// Header keys used on every message published to the fabric.
const (
	HeaderEventType      = "event_type"
	HeaderTraceparent    = "traceparent"
	HeaderContentType    = "content_type"
	HeaderDeliveryMode   = "delivery_mode"
	HeaderMessageID      = "message_id"
	HeaderOriginalTopic  = "x-original-topic"
	HeaderOriginalKey    = "x-original-key"
	HeaderRetryCount     = "x-retry-count"
	HeaderExceptionFqcn  = "x-exception-fqcn"
	HeaderException      = "x-exception-message"
	HeaderFailedAt       = "x-failed-at"
)

const (
	ContentTypeJSON      = "application/json"
	DeliveryModePersistent = "2"
)

// Envelope is the JSON body carried by every event on the fabric. It
// mirrors an outbox.Event's identity fields so a consumer can dedup on
// EventID without inspecting Kafka-specific metadata.
type Envelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	OccurredAt     time.Time       `json:"occurred_at"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
