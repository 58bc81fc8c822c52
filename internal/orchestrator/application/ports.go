package application

import (
	"context"
	"time"

	"github.com/ticketmesh/orderflow/internal/orchestrator/domain"
)

// Repository owns the Hold mirror's persistence: insertion at hold
// creation time, the batch sweep the expiry loop drives, and the
// status flip the order.confirmed consumer applies.
type Repository interface {
	Insert(ctx context.Context, mirror domain.HoldMirror) error
	MarkCommitted(ctx context.Context, holdID string) error
	SweepExpired(ctx context.Context, now time.Time, batchSize int) (int, error)
	Get(ctx context.Context, holdID string) (domain.HoldMirror, error)
}

// InventoryClient is the synchronous call the Orchestrator makes to
// the Inventory Service when a hold is requested.
type InventoryClient interface {
	Hold(ctx context.Context, req HoldRequest) (HoldResult, error)
}

type HoldRequest struct {
	HoldID       string
	SessionID    string
	TicketTypeID string
	Quantity     int
	ExpiresAt    time.Time
}

type HoldResult struct {
	Success           bool
	AvailableQuantity int
}

// OrderClient proxies the public checkout call through to the Order
// Service without the Orchestrator needing to understand its body
// shape.
type OrderClient interface {
	Checkout(ctx context.Context, idempotencyKey string, body []byte) (statusCode int, respBody []byte, err error)
}
