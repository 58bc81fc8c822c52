// Package domain holds the Order Core's aggregate: Order, its line
// items, and the payment stub's own status. State transitions are
// methods so a raw status assignment can never bypass the state
// machine invariants.
package domain

import (
	"time"

	"github.com/ticketmesh/orderflow/pkg/vo"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

type Item struct {
	SessionID    string
	TicketTypeID string
	Quantity     int
	UnitPrice    vo.Money
}

func (i Item) Subtotal() vo.Money {
	return i.UnitPrice.Mul(i.Quantity)
}

type Order struct {
	ID             vo.OrderID
	CustomerEmail  vo.EmailAddress
	Status         Status
	TotalAmount    vo.Money
	IdempotencyKey vo.IdempotencyKey
	HoldID         vo.HoldID
	Items          []Item
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewOrder(id vo.OrderID, key vo.IdempotencyKey, email vo.EmailAddress, holdID vo.HoldID, items []Item) Order {
	total := vo.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return Order{
		ID:             id,
		CustomerEmail:  email,
		Status:         StatusPending,
		TotalAmount:    total,
		IdempotencyKey: key,
		HoldID:         holdID,
		Items:          items,
	}
}

func (o Order) IsPending() bool   { return o.Status == StatusPending }
func (o Order) IsConfirmed() bool { return o.Status == StatusConfirmed }
func (o Order) IsCancelled() bool { return o.Status == StatusCancelled }

// CanConfirm reports whether confirm() is a legal call: pending
// orders confirm normally, already-confirmed orders confirm
// idempotently, cancelled orders never do.
func (o Order) CanConfirm() bool { return o.IsPending() || o.IsConfirmed() }

// CanCancel reports whether cancel() is a legal call: pending orders
// cancel normally, already-cancelled orders cancel idempotently,
// confirmed orders never do.
func (o Order) CanCancel() bool { return o.IsPending() || o.IsCancelled() }

func (o *Order) Confirm() {
	o.Status = StatusConfirmed
}

func (o *Order) Cancel() {
	o.Status = StatusCancelled
}
