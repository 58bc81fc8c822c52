package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmesh/orderflow/internal/inventory/application"
	"github.com/ticketmesh/orderflow/internal/inventory/domain"
	"github.com/ticketmesh/orderflow/pkg/broker"
	"github.com/ticketmesh/orderflow/pkg/consumer"
)

type stubRepository struct {
	committedHoldID string
	releasedHoldID  string
}

func (s *stubRepository) Hold(ctx context.Context, sessionID, ticketTypeID, holdID string, quantity int, expiresAt time.Time) (application.HoldResult, error) {
	return application.HoldResult{}, nil
}

func (s *stubRepository) Release(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	s.releasedHoldID = holdID
	return domain.InventoryItem{}, nil
}

func (s *stubRepository) Commit(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	s.committedHoldID = holdID
	return domain.InventoryItem{}, nil
}

func (s *stubRepository) Availability(ctx context.Context, sessionID, ticketTypeID string) (domain.InventoryItem, error) {
	return domain.InventoryItem{}, nil
}

func TestHandleOrderConfirmedCommitsHold(t *testing.T) {
	repo := &stubRepository{}
	svc := application.NewService(slog.Default(), repo, nil)
	handler := handleOrderConfirmed(svc)

	err := handler(context.Background(), broker.Envelope{Payload: []byte(`{"order_id":"ord-1","hold_id":"hold-1"}`)})

	require.NoError(t, err)
	assert.Equal(t, "hold-1", repo.committedHoldID)
}

func TestHandleOrderConfirmedRejectsMalformedPayload(t *testing.T) {
	svc := application.NewService(slog.Default(), &stubRepository{}, nil)
	handler := handleOrderConfirmed(svc)

	err := handler(context.Background(), broker.Envelope{Payload: []byte("not-json")})

	require.Error(t, err)
	var perm *consumer.PermanentError
	assert.ErrorAs(t, err, &perm)
}

func TestHandleHoldExpiredReleasesHold(t *testing.T) {
	repo := &stubRepository{}
	svc := application.NewService(slog.Default(), repo, nil)
	handler := handleHoldExpired(svc)

	err := handler(context.Background(), broker.Envelope{Payload: []byte(`{"hold_id":"hold-2"}`)})

	require.NoError(t, err)
	assert.Equal(t, "hold-2", repo.releasedHoldID)
}
