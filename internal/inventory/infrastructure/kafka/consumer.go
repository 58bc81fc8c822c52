package kafka

import (
	"context"
	"encoding/json"

	"github.com/ticketmesh/orderflow/internal/inventory/application"
	"github.com/ticketmesh/orderflow/pkg/broker"
	"github.com/ticketmesh/orderflow/pkg/consumer"
)

// NewRunner wires the Inventory Service's two consumer behaviors onto
// a consumer.Runner: order.confirmed converts to a commit, and
// hold.expired converts to a release. Both underlying operations are
// idempotent, so redelivery on top of the runtime's own dedup is
// double safety, not a correctness dependency.
func NewRunner(runner *consumer.Runner, svc *application.Service) *consumer.Runner {
	return runner.
		On(broker.EventOrderConfirmed, handleOrderConfirmed(svc)).
		On(broker.EventHoldExpired, handleHoldExpired(svc))
}

type orderConfirmedPayload struct {
	OrderID string `json:"order_id"`
	HoldID  string `json:"hold_id"`
}

func handleOrderConfirmed(svc *application.Service) consumer.Handler {
	return func(ctx context.Context, env broker.Envelope) error {
		var payload orderConfirmedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return &consumer.PermanentError{Cause: err}
		}
		_, err := svc.Commit(ctx, payload.HoldID)
		return err
	}
}

type holdExpiredPayload struct {
	HoldID string `json:"hold_id"`
}

func handleHoldExpired(svc *application.Service) consumer.Handler {
	return func(ctx context.Context, env broker.Envelope) error {
		var payload holdExpiredPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return &consumer.PermanentError{Cause: err}
		}
		_, err := svc.Release(ctx, payload.HoldID)
		return err
	}
}
