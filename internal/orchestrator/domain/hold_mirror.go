// Package domain holds the Orchestrator's Hold mirror: a thin
// projection of the inventory-side hold lifecycle plus the customer
// metadata the Inventory Service itself never needs to know.
package domain

import "time"

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusCommitted Status = "COMMITTED"
)

type HoldMirror struct {
	HoldID        string
	SessionID     string
	TicketTypeID  string
	Quantity      int
	CustomerEmail string
	Status        Status
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (h HoldMirror) IsActive() bool    { return h.Status == StatusActive }
func (h HoldMirror) IsExpired() bool   { return h.Status == StatusExpired }
func (h HoldMirror) IsCommitted() bool { return h.Status == StatusCommitted }

// IsOverdue reports whether an ACTIVE mirror is past its expiry and
// eligible for the expiry loop to sweep.
func (h HoldMirror) IsOverdue(now time.Time) bool {
	return h.IsActive() && h.ExpiresAt.Before(now)
}
