// Package consumer implements the fabric-side half of at-least-once
// delivery: a Kafka reader per consumer group that dedups against a
// durable table before invoking a handler, retries transient handler
// failures a bounded number of times, and routes anything left over
// to the dead-letter topic instead of dropping it or looping forever.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ticketmesh/orderflow/pkg/broker"
	"github.com/ticketmesh/orderflow/pkg/metrics"
)

// Dedup records that a consumer group has applied the effect of an
// event. Implementations back this with a unique index on
// (consumer_group, event_id) in the same database as the handler's
// write. The Runner records the row with MarkApplied after the handler
// has returned, as a write separate from the handler's own
// transaction; a crash between the two leaves the event unrecorded,
// and it is delivered and handled again.
type Dedup interface {
	// AlreadyApplied returns true without side effects if the event has
	// been recorded as applied for this group.
	AlreadyApplied(ctx context.Context, group, eventID string) (bool, error)

	// MarkApplied records that the event's effect has been applied.
	// The runtime calls this immediately after a successful handler
	// and always commits it before acknowledging the message, per the
	// dead-letter and dedup contract.
	MarkApplied(ctx context.Context, group, eventID, eventType string) error

	// IncrementRetry records a failed delivery attempt and returns the
	// attempt count so far, persisted so the retry budget survives a
	// process restart instead of resetting to zero.
	IncrementRetry(ctx context.Context, group, eventID string) (int, error)
}

// Handler applies the effect of one event in its own transaction. It
// does not record the dedup row: the Runner calls Dedup.MarkApplied
// once the handler returns nil. MarkAppliedTx in this package's
// Postgres implementation records the row inside a handler's own
// transaction for a handler that calls it.
type Handler func(ctx context.Context, env broker.Envelope) error

// PermanentError marks a handler failure that will never succeed on
// retry (malformed payload, unknown event type). The runtime routes
// these straight to the dead-letter topic without spending the retry
// budget.
type PermanentError struct{ Cause error }

func (e *PermanentError) Error() string { return "permanent: " + e.Cause.Error() }
func (e *PermanentError) Unwrap() error { return e.Cause }

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Runner struct {
	log      *slog.Logger
	reader   *kafka.Reader
	dlq      Producer
	dlqTopic string
	dedup    Dedup
	group    string
	retryCap int
	tracer   trace.Tracer
	handlers map[string]Handler
	metrics  *metrics.Metrics
}

type Config struct {
	Brokers   []string
	Topic     string
	Group     string
	DLQTopic  string
	RetryCap  int
	Prefetch  int
}

func NewRunner(log *slog.Logger, cfg Config, dlq Producer, dedup Dedup) *Runner {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.Group,
		QueueCapacity: max(1, cfg.Prefetch),
	})
	return &Runner{
		log:      log,
		reader:   reader,
		dlq:      dlq,
		dlqTopic: cfg.DLQTopic,
		dedup:    dedup,
		group:    cfg.Group,
		retryCap: cfg.RetryCap,
		tracer:   otel.Tracer("consumer." + cfg.Group),
		handlers: map[string]Handler{},
	}
}

// On registers the handler invoked for envelopes of the given event
// type. Event types with no registered handler are acknowledged and
// skipped, since a consumer group only ever subscribes to the subset
// of the shared events topic it understands.
func (r *Runner) On(eventType string, h Handler) *Runner {
	r.handlers[eventType] = h
	return r
}

func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

func (r *Runner) Run(ctx context.Context) error {
	defer r.reader.Close()
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.process(ctx, msg)
	}
}

func (r *Runner) process(ctx context.Context, msg kafka.Message) {
	msgCtx, env, err := broker.Decode(ctx, msg)
	if err != nil {
		r.log.Error("envelope decode failed", "err", err)
		r.deadLetter(ctx, msg, 0, err)
		return
	}

	msgCtx, span := r.tracer.Start(msgCtx, "consume."+env.EventType)
	defer span.End()

	applied, err := r.dedup.AlreadyApplied(msgCtx, r.group, env.EventID)
	if err != nil {
		r.log.Error("dedup check failed", "event_id", env.EventID, "err", err)
		return // leave uncommitted, will be redelivered
	}
	if applied {
		r.log.Info("duplicate event skipped", "event_id", env.EventID, "group", r.group)
		_ = r.reader.CommitMessages(ctx, msg)
		return
	}

	handler, ok := r.handlers[env.EventType]
	if !ok {
		_ = r.reader.CommitMessages(ctx, msg)
		return
	}

	if err := handler(msgCtx, env); err != nil {
		var perm *PermanentError
		if errors.As(err, &perm) {
			r.log.Error("permanent handler failure", "event_id", env.EventID, "err", err)
			r.deadLetter(ctx, msg, 0, err)
			return
		}

		retries, rerr := r.dedup.IncrementRetry(ctx, r.group, env.EventID)
		if rerr != nil {
			r.log.Error("retry counter update failed", "event_id", env.EventID, "err", rerr)
			return
		}
		if retries > r.retryCap {
			r.log.Error("retry budget exhausted", "event_id", env.EventID, "retries", retries, "err", err)
			r.deadLetter(ctx, msg, retries, err)
			return
		}

		r.metrics.IncRedelivery(r.group, env.EventType)
		r.log.Warn("handler failed, will redeliver", "event_id", env.EventID, "retries", retries, "err", err)
		return // leave uncommitted; the broker redelivers on the next poll
	}

	if err := r.dedup.MarkApplied(msgCtx, r.group, env.EventID, env.EventType); err != nil {
		r.log.Error("dedup record failed, message stays unacked", "event_id", env.EventID, "err", err)
		return
	}

	if err := r.reader.CommitMessages(ctx, msg); err != nil {
		r.log.Error("commit failed", "event_id", env.EventID, "err", err)
	}
}

func (r *Runner) deadLetter(ctx context.Context, msg kafka.Message, retries int, cause error) {
	dead := broker.ToDeadLetter(msg, r.dlqTopic, retries, cause)
	if err := r.dlq.WriteMessages(ctx, dead); err != nil {
		r.log.Error("dead-letter publish failed", "err", err)
		return
	}
	r.metrics.IncDeadLettered(r.group, broker.HeaderValue(msg.Headers, broker.HeaderEventType))
	_ = r.reader.CommitMessages(ctx, msg)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
