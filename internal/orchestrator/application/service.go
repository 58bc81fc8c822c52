package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ticketmesh/orderflow/internal/orchestrator/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/metrics"
	"github.com/ticketmesh/orderflow/pkg/vo"
)

type Service struct {
	log         *slog.Logger
	repo        Repository
	inventory   InventoryClient
	orders      OrderClient
	holdTTL     time.Duration
	metrics     *metrics.Metrics
}

func NewService(log *slog.Logger, repo Repository, inventory InventoryClient, orders OrderClient, holdTTL time.Duration, m *metrics.Metrics) *Service {
	return &Service{log: log, repo: repo, inventory: inventory, orders: orders, holdTTL: holdTTL, metrics: m}
}

type CreateHoldInput struct {
	SessionID     string
	TicketTypeID  string
	Quantity      int
	CustomerEmail string
}

type CreateHoldOutput struct {
	HoldID    string
	ExpiresAt time.Time
}

// CreateHold synchronously calls the Inventory Service and, only on
// success, persists the local mirror — the mirror must never claim a
// hold the Inventory Service didn't actually grant.
func (s *Service) CreateHold(ctx context.Context, in CreateHoldInput) (CreateHoldOutput, error) {
	if in.Quantity <= 0 {
		return CreateHoldOutput{}, domainerrors.New(domainerrors.KindValidation, "quantity must be > 0")
	}
	email, err := vo.NewEmailAddress(in.CustomerEmail)
	if err != nil {
		return CreateHoldOutput{}, domainerrors.New(domainerrors.KindValidation, "invalid customer_email")
	}

	holdID := vo.NewGeneratedHoldID()
	expiresAt := time.Now().Add(s.holdTTL)

	result, err := s.inventory.Hold(ctx, HoldRequest{
		HoldID:       holdID.String(),
		SessionID:    in.SessionID,
		TicketTypeID: in.TicketTypeID,
		Quantity:     in.Quantity,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		s.log.Warn("inventory hold failed", "hold_id", holdID, "error", err)
		return CreateHoldOutput{}, err
	}

	mirror := domain.HoldMirror{
		HoldID:        holdID.String(),
		SessionID:     in.SessionID,
		TicketTypeID:  in.TicketTypeID,
		Quantity:      in.Quantity,
		CustomerEmail: email.String(),
		Status:        domain.StatusActive,
		ExpiresAt:     expiresAt,
	}
	if err := s.repo.Insert(ctx, mirror); err != nil {
		return CreateHoldOutput{}, err
	}

	s.log.Info("hold created", "hold_id", holdID, "available_quantity", result.AvailableQuantity)
	return CreateHoldOutput{HoldID: holdID.String(), ExpiresAt: expiresAt}, nil
}

// Checkout is a pure proxy: the Orchestrator does not interpret the
// order envelope, it only relays the client's body and idempotency
// key to the Order Service and hands back whatever it said.
func (s *Service) Checkout(ctx context.Context, idempotencyKey string, body []byte) (int, []byte, error) {
	if idempotencyKey == "" {
		return 0, nil, domainerrors.New(domainerrors.KindValidation, "Idempotency-Key header is required")
	}
	return s.orders.Checkout(ctx, idempotencyKey, body)
}

// MarkHoldCommitted is invoked by the order.confirmed consumer so the
// expiry loop's ACTIVE-only sweep naturally excludes committed holds
// without needing to reason about the Inventory Service's own state.
func (s *Service) MarkHoldCommitted(ctx context.Context, holdID string) error {
	return s.repo.MarkCommitted(ctx, holdID)
}
