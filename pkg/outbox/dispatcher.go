package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/ticketmesh/orderflow/pkg/broker"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic}
}

// Dispatch encodes event as a broker.Envelope and publishes it,
// keying the Kafka message by aggregate ID so all events for the same
// aggregate land on the same partition and preserve ordering.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	env := broker.Envelope{
		EventID:        event.EventID,
		EventType:      event.EventType,
		OccurredAt:     event.OccurredAt,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		IdempotencyKey: event.IdempotencyKey,
		Payload:        json.RawMessage(event.Payload),
	}

	msg, err := broker.Encode(ctx, d.topic, event.AggregateID, env)
	if err != nil {
		return ErrPermanent
	}
	for k, v := range event.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.EventID, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.EventID, "type", event.EventType)
	return nil
}

var ErrPermanent = errors.New("permanent")
