package application

import (
	"context"

	"github.com/ticketmesh/orderflow/pkg/vo"
)

// StubPaymentProcessor always authorizes, matching the platform's
// explicit non-goal of real payment processing. FaultInjector, when
// set, overrides that for negative-path tests.
type StubPaymentProcessor struct {
	FaultInjector func(orderID vo.OrderID, amount vo.Money) bool
}

func (p StubPaymentProcessor) Authorize(ctx context.Context, orderID vo.OrderID, amount vo.Money) (bool, error) {
	if p.FaultInjector != nil {
		return !p.FaultInjector(orderID, amount), nil
	}
	return true, nil
}
