package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmesh/orderflow/internal/orchestrator/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

type stubOrchestratorRepository struct {
	inserted     []domain.HoldMirror
	insertErr    error
	markedHoldID string
	markErr      error
	getMirror    domain.HoldMirror
	getErr       error
}

func (s *stubOrchestratorRepository) Insert(ctx context.Context, mirror domain.HoldMirror) error {
	s.inserted = append(s.inserted, mirror)
	return s.insertErr
}

func (s *stubOrchestratorRepository) MarkCommitted(ctx context.Context, holdID string) error {
	s.markedHoldID = holdID
	return s.markErr
}

func (s *stubOrchestratorRepository) SweepExpired(ctx context.Context, now time.Time, batchSize int) (int, error) {
	return 0, nil
}

func (s *stubOrchestratorRepository) Get(ctx context.Context, holdID string) (domain.HoldMirror, error) {
	return s.getMirror, s.getErr
}

type stubInventoryClient struct {
	result HoldResult
	err    error
}

func (s *stubInventoryClient) Hold(ctx context.Context, req HoldRequest) (HoldResult, error) {
	return s.result, s.err
}

type stubOrderClient struct {
	status int
	body   []byte
	err    error
}

func (s *stubOrderClient) Checkout(ctx context.Context, idempotencyKey string, body []byte) (int, []byte, error) {
	return s.status, s.body, s.err
}

func TestCreateHoldRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(slog.Default(), &stubOrchestratorRepository{}, &stubInventoryClient{}, &stubOrderClient{}, time.Minute, nil)

	_, err := svc.CreateHold(context.Background(), CreateHoldInput{SessionID: "s1", TicketTypeID: "ga", Quantity: 0, CustomerEmail: "a@b.com"})

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindValidation))
}

func TestCreateHoldRejectsInvalidEmail(t *testing.T) {
	svc := NewService(slog.Default(), &stubOrchestratorRepository{}, &stubInventoryClient{}, &stubOrderClient{}, time.Minute, nil)

	_, err := svc.CreateHold(context.Background(), CreateHoldInput{SessionID: "s1", TicketTypeID: "ga", Quantity: 1, CustomerEmail: "not-an-email"})

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindValidation))
}

func TestCreateHoldNeverPersistsMirrorWhenInventoryFails(t *testing.T) {
	repo := &stubOrchestratorRepository{}
	inv := &stubInventoryClient{err: domainerrors.New(domainerrors.KindInsufficientInventory, "no seats")}
	svc := NewService(slog.Default(), repo, inv, &stubOrderClient{}, time.Minute, nil)

	_, err := svc.CreateHold(context.Background(), CreateHoldInput{SessionID: "s1", TicketTypeID: "ga", Quantity: 1, CustomerEmail: "a@b.com"})

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindInsufficientInventory))
	assert.Empty(t, repo.inserted, "mirror must never be written for a hold the inventory service refused")
}

func TestCreateHoldPersistsActiveMirrorOnSuccess(t *testing.T) {
	repo := &stubOrchestratorRepository{}
	inv := &stubInventoryClient{result: HoldResult{Success: true, AvailableQuantity: 5}}
	svc := NewService(slog.Default(), repo, inv, &stubOrderClient{}, time.Minute, nil)

	out, err := svc.CreateHold(context.Background(), CreateHoldInput{SessionID: "s1", TicketTypeID: "ga", Quantity: 2, CustomerEmail: "a@b.com"})

	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, domain.StatusActive, repo.inserted[0].Status)
	assert.Equal(t, out.HoldID, repo.inserted[0].HoldID)
	assert.Equal(t, 2, repo.inserted[0].Quantity)
}

func TestCheckoutRejectsMissingIdempotencyKey(t *testing.T) {
	svc := NewService(slog.Default(), &stubOrchestratorRepository{}, &stubInventoryClient{}, &stubOrderClient{}, time.Minute, nil)

	_, _, err := svc.Checkout(context.Background(), "", []byte(`{}`))

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindValidation))
}

func TestCheckoutProxiesOrderClientVerbatim(t *testing.T) {
	orders := &stubOrderClient{status: 201, body: []byte(`{"order_id":"abc"}`)}
	svc := NewService(slog.Default(), &stubOrchestratorRepository{}, &stubInventoryClient{}, orders, time.Minute, nil)

	status, body, err := svc.Checkout(context.Background(), "idem-1", []byte(`{"hold_id":"h1"}`))

	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, orders.body, body)
}

func TestMarkHoldCommittedDelegatesToRepository(t *testing.T) {
	repo := &stubOrchestratorRepository{}
	svc := NewService(slog.Default(), repo, &stubInventoryClient{}, &stubOrderClient{}, time.Minute, nil)

	err := svc.MarkHoldCommitted(context.Background(), "hold-1")

	require.NoError(t, err)
	assert.Equal(t, "hold-1", repo.markedHoldID)
}
