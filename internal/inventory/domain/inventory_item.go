// Package domain holds the Inventory Core's aggregates: InventoryItem
// and Hold. Both carry their own invariants as methods rather than
// leaving callers to check status by hand.
package domain

import "time"

// InventoryItem is the row-locked seat count for one
// (session_id, ticket_type_id) pair. AvailableQuantity is mutated
// only by Hold and Release; Commit reclassifies capacity without
// touching it.
type InventoryItem struct {
	ID                 string
	SessionID          string
	TicketTypeID       string
	TotalQuantity      int
	AvailableQuantity  int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (i InventoryItem) HasCapacityFor(quantity int) bool {
	return i.AvailableQuantity >= quantity
}

func (i *InventoryItem) Decrement(quantity int) {
	i.AvailableQuantity -= quantity
}

func (i *InventoryItem) Increment(quantity int) {
	i.AvailableQuantity += quantity
}

func (i InventoryItem) HeldQuantity() int {
	return i.TotalQuantity - i.AvailableQuantity
}
