package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmesh/orderflow/pkg/broker"
)

type stubProducer struct {
	sent []kafka.Message
	err  error
}

func (p *stubProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func TestDispatchEncodesEnvelopeKeyedByAggregateID(t *testing.T) {
	producer := &stubProducer{}
	d := NewDispatcher(slog.Default(), producer, "events")

	event := Event{
		EventID:       "evt-1",
		EventType:     broker.EventHoldCreated,
		AggregateType: "hold",
		AggregateID:   "hold-1",
		Payload:       []byte(`{"quantity":2}`),
		OccurredAt:    time.Now(),
		Headers:       map[string]string{"x-custom": "value"},
	}

	err := d.Dispatch(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "events", msg.Topic)
	assert.Equal(t, "hold-1", string(msg.Key))
	assert.Equal(t, "value", broker.HeaderValue(msg.Headers, "x-custom"))
	assert.Equal(t, broker.EventHoldCreated, broker.HeaderValue(msg.Headers, broker.HeaderEventType))
}

func TestDispatchPropagatesProducerError(t *testing.T) {
	producer := &stubProducer{err: errors.New("broker unreachable")}
	d := NewDispatcher(slog.Default(), producer, "events")

	err := d.Dispatch(context.Background(), Event{EventID: "evt-1", AggregateID: "hold-1", OccurredAt: time.Now()})

	assert.Error(t, err)
}
