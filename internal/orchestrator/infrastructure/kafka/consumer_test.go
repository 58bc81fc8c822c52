package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmesh/orderflow/internal/orchestrator/application"
	"github.com/ticketmesh/orderflow/internal/orchestrator/domain"
	"github.com/ticketmesh/orderflow/pkg/broker"
	"github.com/ticketmesh/orderflow/pkg/consumer"
)

type stubRepository struct{ markedHoldID string }

func (s *stubRepository) Insert(ctx context.Context, mirror domain.HoldMirror) error { return nil }
func (s *stubRepository) MarkCommitted(ctx context.Context, holdID string) error {
	s.markedHoldID = holdID
	return nil
}
func (s *stubRepository) SweepExpired(ctx context.Context, now time.Time, batchSize int) (int, error) {
	return 0, nil
}
func (s *stubRepository) Get(ctx context.Context, holdID string) (domain.HoldMirror, error) {
	return domain.HoldMirror{}, nil
}

type stubInventoryClient struct{}

func (s *stubInventoryClient) Hold(ctx context.Context, req application.HoldRequest) (application.HoldResult, error) {
	return application.HoldResult{}, nil
}

type stubOrderClient struct{}

func (s *stubOrderClient) Checkout(ctx context.Context, idempotencyKey string, body []byte) (int, []byte, error) {
	return 0, nil, nil
}

func TestHandleOrderConfirmedMarksMirrorCommitted(t *testing.T) {
	repo := &stubRepository{}
	svc := application.NewService(slog.Default(), repo, &stubInventoryClient{}, &stubOrderClient{}, time.Minute, nil)
	handler := handleOrderConfirmed(svc)

	err := handler(context.Background(), broker.Envelope{Payload: []byte(`{"order_id":"ord-1","hold_id":"hold-1"}`)})

	require.NoError(t, err)
	assert.Equal(t, "hold-1", repo.markedHoldID)
}

func TestHandleOrderConfirmedRejectsMalformedPayload(t *testing.T) {
	svc := application.NewService(slog.Default(), &stubRepository{}, &stubInventoryClient{}, &stubOrderClient{}, time.Minute, nil)
	handler := handleOrderConfirmed(svc)

	err := handler(context.Background(), broker.Envelope{Payload: []byte("not-json")})

	require.Error(t, err)
	var perm *consumer.PermanentError
	assert.ErrorAs(t, err, &perm)
}
