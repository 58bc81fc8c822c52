// Package application implements the Order Core's create / confirm /
// cancel / get operations. Payment is a stub processor rather than a
// separate service call, since confirm() must run the charge and the
// resulting state transition inside one transaction.
package application

import (
	"context"

	"github.com/ticketmesh/orderflow/internal/order/domain"
	"github.com/ticketmesh/orderflow/pkg/vo"
)

// CreateResult distinguishes a freshly-created order from an
// idempotent replay so the handler can pick 201 vs 200.
type CreateResult struct {
	Order   domain.Order
	Existed bool
}

type Repository interface {
	Create(ctx context.Context, order domain.Order, payment domain.Payment) (CreateResult, error)
	Confirm(ctx context.Context, orderID vo.OrderID, processor PaymentProcessor) (domain.Order, domain.Payment, error)
	Cancel(ctx context.Context, orderID vo.OrderID) (domain.Order, error)
	Get(ctx context.Context, orderID vo.OrderID) (domain.Order, error)
}

// PaymentProcessor authorizes a payment for amount. The default
// implementation always succeeds; a fault-injection hook can be
// substituted in tests to exercise the PAYMENT_FAILED path.
type PaymentProcessor interface {
	Authorize(ctx context.Context, orderID vo.OrderID, amount vo.Money) (bool, error)
}
