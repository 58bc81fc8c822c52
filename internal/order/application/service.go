package application

import (
	"context"
	"log/slog"

	"github.com/ticketmesh/orderflow/internal/order/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/vo"
)

type Service struct {
	log       *slog.Logger
	repo      Repository
	processor PaymentProcessor
}

func NewService(log *slog.Logger, repo Repository, processor PaymentProcessor) *Service {
	return &Service{log: log, repo: repo, processor: processor}
}

// Create is idempotent by key: a repeated call with the same
// IdempotencyKey returns the existing order rather than inserting
// again, and the handler uses CreateResult.Existed to pick 200 vs 201.
func (s *Service) Create(ctx context.Context, key vo.IdempotencyKey, email vo.EmailAddress, holdID vo.HoldID, items []domain.Item) (CreateResult, error) {
	if len(items) == 0 {
		return CreateResult{}, domainerrors.New(domainerrors.KindValidation, "order must contain at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return CreateResult{}, domainerrors.New(domainerrors.KindValidation, "item quantity must be > 0")
		}
	}

	order := domain.NewOrder(vo.NewGeneratedOrderID(), key, email, holdID, items)
	payment := domain.NewPendingPayment(order.ID, order.TotalAmount)

	result, err := s.repo.Create(ctx, order, payment)
	if err != nil {
		return CreateResult{}, err
	}

	s.log.Info("order created", "order_id", result.Order.ID, "existed", result.Existed, "total", result.Order.TotalAmount.String())
	return result, nil
}

func (s *Service) Confirm(ctx context.Context, orderID vo.OrderID) (domain.Order, domain.Payment, error) {
	order, payment, err := s.repo.Confirm(ctx, orderID, s.processor)
	if err != nil {
		return domain.Order{}, domain.Payment{}, err
	}
	s.log.Info("order confirm processed", "order_id", orderID, "status", order.Status, "payment_status", payment.Status)
	return order, payment, nil
}

func (s *Service) Cancel(ctx context.Context, orderID vo.OrderID) (domain.Order, error) {
	order, err := s.repo.Cancel(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order cancel processed", "order_id", orderID, "status", order.Status)
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID vo.OrderID) (domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}
