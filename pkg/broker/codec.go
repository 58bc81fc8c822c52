package broker

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/ticketmesh/orderflow/pkg/tracing"
)

// Encode builds a kafka.Message carrying env as its JSON value, tagged
// with the standard content-type/delivery-mode/message-id headers plus
// the caller-supplied trace context.
func Encode(ctx context.Context, topic, key string, env Envelope) (kafka.Message, error) {
	body, err := env.Marshal()
	if err != nil {
		return kafka.Message{}, err
	}

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(env.EventType)},
		{Key: HeaderContentType, Value: []byte(ContentTypeJSON)},
		{Key: HeaderDeliveryMode, Value: []byte(DeliveryModePersistent)},
		{Key: HeaderMessageID, Value: []byte(env.EventID)},
	}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   body,
		Headers: headers,
	}, nil
}

// Decode extracts the Envelope and a trace-propagated context from an
// inbound Kafka message.
func Decode(ctx context.Context, msg kafka.Message) (context.Context, Envelope, error) {
	ctx = tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	env, err := Unmarshal(msg.Value)
	return ctx, env, err
}

// HeaderValue returns the string value of a header, or "" if absent.
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// ToDeadLetter rewrites msg for the DLQ topic, preserving the original
// topic/key/exception context per the header conventions consumers use
// to log and triage dead letters.
func ToDeadLetter(msg kafka.Message, dlqTopic string, retryCount int, cause error) kafka.Message {
	headers := append([]kafka.Header{}, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalKey, Value: msg.Key},
		kafka.Header{Key: HeaderRetryCount, Value: []byte(strconv.Itoa(retryCount))},
	)
	if cause != nil {
		headers = append(headers, kafka.Header{Key: HeaderException, Value: []byte(cause.Error())})
	}

	return kafka.Message{
		Topic:   dlqTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}
