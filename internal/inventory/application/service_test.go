package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmesh/orderflow/internal/inventory/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

type stubRepository struct {
	holdResult HoldResult
	holdErr    error

	releaseItem domain.InventoryItem
	releaseErr  error

	commitItem domain.InventoryItem
	commitErr  error

	availabilityItem domain.InventoryItem
	availabilityErr  error
}

func (s *stubRepository) Hold(ctx context.Context, sessionID, ticketTypeID, holdID string, quantity int, expiresAt time.Time) (HoldResult, error) {
	return s.holdResult, s.holdErr
}

func (s *stubRepository) Release(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	return s.releaseItem, s.releaseErr
}

func (s *stubRepository) Commit(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	return s.commitItem, s.commitErr
}

func (s *stubRepository) Availability(ctx context.Context, sessionID, ticketTypeID string) (domain.InventoryItem, error) {
	return s.availabilityItem, s.availabilityErr
}

func newTestService(repo Repository) *Service {
	return NewService(slog.Default(), repo, nil)
}

func TestServiceHoldRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(&stubRepository{})

	_, err := svc.Hold(context.Background(), "sess", "ga", "hold-1", 0, time.Now().Add(time.Minute))

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindValidation))
}

func TestServiceHoldPropagatesInsufficientInventory(t *testing.T) {
	repo := &stubRepository{holdErr: domainerrors.New(domainerrors.KindInsufficientInventory, "no seats left")}
	svc := newTestService(repo)

	_, err := svc.Hold(context.Background(), "sess", "ga", "hold-1", 2, time.Now().Add(time.Minute))

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindInsufficientInventory))
}

func TestServiceHoldReturnsRepositoryItemOnSuccess(t *testing.T) {
	item := domain.InventoryItem{SessionID: "sess", TicketTypeID: "ga", AvailableQuantity: 8}
	repo := &stubRepository{holdResult: HoldResult{Item: item, Accepted: true}}
	svc := newTestService(repo)

	got, err := svc.Hold(context.Background(), "sess", "ga", "hold-1", 2, time.Now().Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestServiceHoldDuplicateStillSucceeds(t *testing.T) {
	item := domain.InventoryItem{SessionID: "sess", TicketTypeID: "ga", AvailableQuantity: 8}
	repo := &stubRepository{holdResult: HoldResult{Item: item, Duplicate: true}}
	svc := newTestService(repo)

	got, err := svc.Hold(context.Background(), "sess", "ga", "hold-1", 2, time.Now().Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestServiceReleasePropagatesRepositoryError(t *testing.T) {
	repo := &stubRepository{releaseErr: domainerrors.New(domainerrors.KindHoldNotFound, "no such hold")}
	svc := newTestService(repo)

	_, err := svc.Release(context.Background(), "missing-hold")

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindHoldNotFound))
}

func TestServiceCommitReturnsItem(t *testing.T) {
	item := domain.InventoryItem{SessionID: "sess", TicketTypeID: "ga", AvailableQuantity: 5}
	repo := &stubRepository{commitItem: item}
	svc := newTestService(repo)

	got, err := svc.Commit(context.Background(), "hold-1")

	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestServiceAvailabilityDelegatesToRepository(t *testing.T) {
	item := domain.InventoryItem{SessionID: "sess", TicketTypeID: "ga", AvailableQuantity: 12}
	repo := &stubRepository{availabilityItem: item}
	svc := newTestService(repo)

	got, err := svc.Availability(context.Background(), "sess", "ga")

	require.NoError(t, err)
	assert.Equal(t, item, got)
}
