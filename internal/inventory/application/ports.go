// Package application implements the Inventory Service's hold/
// release/commit/availability operations against the ports below,
// keeping the row-locking transaction boundary in the repository
// rather than the service.
package application

import (
	"context"
	"time"

	"github.com/ticketmesh/orderflow/internal/inventory/domain"
)

// HoldResult is what the repository returns after evaluating the
// hold algorithm's critical section, letting the service distinguish
// a fresh hold from an idempotent replay without a second query.
type HoldResult struct {
	Item      domain.InventoryItem
	Accepted  bool
	Duplicate bool
}

// Repository executes the row-locked transactions the hold, release
// and commit algorithms require. Every method opens and commits its
// own transaction; there is no cross-call transaction state.
type Repository interface {
	Hold(ctx context.Context, sessionID, ticketTypeID, holdID string, quantity int, expiresAt time.Time) (HoldResult, error)
	Release(ctx context.Context, holdID string) (domain.InventoryItem, error)
	Commit(ctx context.Context, holdID string) (domain.InventoryItem, error)
	Availability(ctx context.Context, sessionID, ticketTypeID string) (domain.InventoryItem, error)
}
