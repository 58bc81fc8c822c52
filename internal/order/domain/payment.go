package domain

import "github.com/ticketmesh/orderflow/pkg/vo"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment is 1:1 with an Order. Its amount always mirrors the
// order's total at creation time.
type Payment struct {
	OrderID vo.OrderID
	Status  PaymentStatus
	Amount  vo.Money
}

func NewPendingPayment(orderID vo.OrderID, amount vo.Money) Payment {
	return Payment{OrderID: orderID, Status: PaymentPending, Amount: amount}
}
