// Package kafka wires the Orchestrator's order.confirmed consumer,
// which exists solely to flip its Hold mirror to COMMITTED so the
// expiry loop's ACTIVE-only sweep excludes holds an order has already
// confirmed against.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/ticketmesh/orderflow/internal/orchestrator/application"
	"github.com/ticketmesh/orderflow/pkg/broker"
	"github.com/ticketmesh/orderflow/pkg/consumer"
)

func NewRunner(runner *consumer.Runner, svc *application.Service) *consumer.Runner {
	return runner.On(broker.EventOrderConfirmed, handleOrderConfirmed(svc))
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
		return svc.MarkHoldCommitted(ctx, payload.HoldID)
	}
}
