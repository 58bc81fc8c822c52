// Package vo holds the domain primitives shared by every service:
// values that validate themselves at construction so that an invalid
// instance simply cannot exist inside the domain layer.
package vo

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// EmailAddress is a validated customer email.
type EmailAddress struct {
	value string
}

func NewEmailAddress(raw string) (EmailAddress, error) {
	raw = strings.TrimSpace(raw)
	if err := validate.Var(raw, "required,email"); err != nil {
		return EmailAddress{}, fmt.Errorf("invalid email address %q: %w", raw, err)
	}
	return EmailAddress{value: strings.ToLower(raw)}, nil
}

func (e EmailAddress) String() string { return e.value }
func (e EmailAddress) IsZero() bool   { return e.value == "" }

// Money is a non-negative monetary amount with two-decimal precision.
type Money struct {
	amount decimal.Decimal
}

var Zero = Money{amount: decimal.Zero}

func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("money amount must be non-negative, got %s", amount.String())
	}
	return Money{amount: amount.Round(2)}, nil
}

func MoneyFromFloat(f float64) (Money, error) {
	return NewMoney(decimal.NewFromFloat(f))
}

func MoneyFromString(raw string) (Money, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", raw, err)
	}
	return NewMoney(amount)
}

func MoneyFromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -2)}
}

func (m Money) Decimal() decimal.Decimal { return m.amount }
func (m Money) Add(other Money) Money    { return Money{amount: m.amount.Add(other.amount)} }
func (m Money) Mul(qty int) Money        { return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty)))} }
func (m Money) String() string           { return m.amount.StringFixed(2) }
func (m Money) Equal(other Money) bool   { return m.amount.Equal(other.amount) }

// Quantity is a strictly positive count of tickets.
type Quantity int

func NewQuantity(n int) (Quantity, error) {
	if n <= 0 {
		return 0, fmt.Errorf("quantity must be > 0, got %d", n)
	}
	return Quantity(n), nil
}

func (q Quantity) Int() int { return int(q) }

// HoldID identifies a hold, supplied by the caller so that retries of
// the same logical hold request collapse onto the same identity.
type HoldID string

func NewHoldID(raw string) (HoldID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("hold id must not be empty")
	}
	return HoldID(raw), nil
}

func NewGeneratedHoldID() HoldID { return HoldID(uuid.NewString()) }

func (h HoldID) String() string { return string(h) }
func (h HoldID) IsZero() bool   { return h == "" }

// OrderID identifies an order.
type OrderID string

func NewOrderID(raw string) (OrderID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("order id must not be empty")
	}
	return OrderID(raw), nil
}

func NewGeneratedOrderID() OrderID { return OrderID(uuid.NewString()) }

func (o OrderID) String() string { return string(o) }
func (o OrderID) IsZero() bool   { return o == "" }

// IdempotencyKey collapses retries of the same logical write into a
// single effect.
type IdempotencyKey string

func NewIdempotencyKey(raw string) (IdempotencyKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("idempotency key must not be empty")
	}
	return IdempotencyKey(raw), nil
}

func (k IdempotencyKey) String() string { return string(k) }
func (k IdempotencyKey) IsZero() bool   { return k == "" }

// NewEventID mints a fresh event identifier for the outbox.
func NewEventID() string { return uuid.NewString() }
