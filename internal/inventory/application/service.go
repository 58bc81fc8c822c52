package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ticketmesh/orderflow/internal/inventory/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/metrics"
)

// Service implements the Inventory Service's four operations. All of
// the actual locking and state-transition logic lives in the
// Repository, which owns the transaction boundary; the service adds
// logging, metrics, and translates repository results into the
// shapes callers expect.
type Service struct {
	log   *slog.Logger
	repo  Repository
	stats *metrics.Metrics
}

func NewService(log *slog.Logger, repo Repository, stats *metrics.Metrics) *Service {
	return &Service{log: log, repo: repo, stats: stats}
}

// Hold runs the critical-section algorithm: insufficient inventory is
// a structured result, not an error the caller must unwrap specially.
func (s *Service) Hold(ctx context.Context, sessionID, ticketTypeID, holdID string, quantity int, expiresAt time.Time) (domain.InventoryItem, error) {
	if quantity <= 0 {
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindValidation, "quantity must be > 0")
	}

	result, err := s.repo.Hold(ctx, sessionID, ticketTypeID, holdID, quantity, expiresAt)
	if err != nil {
		if domainerrors.Is(err, domainerrors.KindInsufficientInventory) {
			s.stats.IncHoldAttempt("rejected")
		}
		return domain.InventoryItem{}, err
	}

	outcome := "accepted"
	if result.Duplicate {
		outcome = "duplicate"
	}
	s.stats.IncHoldAttempt(outcome)
	s.log.Info("hold processed", "hold_id", holdID, "session_id", sessionID, "ticket_type_id", ticketTypeID, "quantity", quantity, "duplicate", result.Duplicate)
	return result.Item, nil
}

func (s *Service) Release(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	item, err := s.repo.Release(ctx, holdID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.log.Info("hold released", "hold_id", holdID)
	return item, nil
}

func (s *Service) Commit(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	item, err := s.repo.Commit(ctx, holdID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.log.Info("hold committed", "hold_id", holdID)
	return item, nil
}

func (s *Service) Availability(ctx context.Context, sessionID, ticketTypeID string) (domain.InventoryItem, error) {
	return s.repo.Availability(ctx, sessionID, ticketTypeID)
}
