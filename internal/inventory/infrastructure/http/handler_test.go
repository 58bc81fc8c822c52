package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmesh/orderflow/internal/inventory/application"
	"github.com/ticketmesh/orderflow/internal/inventory/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

type stubRepository struct {
	holdResult       application.HoldResult
	holdErr          error
	availabilityItem domain.InventoryItem
}

func (s *stubRepository) Hold(ctx context.Context, sessionID, ticketTypeID, holdID string, quantity int, expiresAt time.Time) (application.HoldResult, error) {
	return s.holdResult, s.holdErr
}

func (s *stubRepository) Release(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	return domain.InventoryItem{}, nil
}

func (s *stubRepository) Commit(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	return domain.InventoryItem{}, nil
}

func (s *stubRepository) Availability(ctx context.Context, sessionID, ticketTypeID string) (domain.InventoryItem, error) {
	return s.availabilityItem, nil
}

func TestHoldEndpointReturnsConflictOnInsufficientInventory(t *testing.T) {
	repo := &stubRepository{
		holdErr:          domainerrors.New(domainerrors.KindInsufficientInventory, "no seats"),
		availabilityItem: domain.InventoryItem{AvailableQuantity: 1},
	}
	svc := application.NewService(slog.Default(), repo, nil)
	handler := NewHandler(slog.Default(), svc)

	body, _ := json.Marshal(holdRequest{HoldID: "hold-1", SessionID: "s1", TicketTypeID: "ga", Quantity: 5})
	req := httptest.NewRequest("POST", "/inventory/hold", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	handler.Routes().ServeHTTP(resp, req)

	assert.Equal(t, 409, resp.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, float64(1), payload["available_quantity"])
}

func TestHoldEndpointReturnsAvailableQuantityOnSuccess(t *testing.T) {
	repo := &stubRepository{
		holdResult: application.HoldResult{Item: domain.InventoryItem{AvailableQuantity: 3}, Accepted: true},
	}
	svc := application.NewService(slog.Default(), repo, nil)
	handler := NewHandler(slog.Default(), svc)

	body, _ := json.Marshal(holdRequest{HoldID: "hold-1", SessionID: "s1", TicketTypeID: "ga", Quantity: 2})
	req := httptest.NewRequest("POST", "/inventory/hold", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	handler.Routes().ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(3), payload["available_quantity"])
}

func TestHoldEndpointRejectsMalformedBody(t *testing.T) {
	svc := application.NewService(slog.Default(), &stubRepository{}, nil)
	handler := NewHandler(slog.Default(), svc)

	req := httptest.NewRequest("POST", "/inventory/hold", bytes.NewReader([]byte("not-json")))
	resp := httptest.NewRecorder()

	handler.Routes().ServeHTTP(resp, req)

	assert.Equal(t, 400, resp.Code)
}

func TestAvailabilityEndpointReturnsHeldQuantity(t *testing.T) {
	repo := &stubRepository{availabilityItem: domain.InventoryItem{TotalQuantity: 10, AvailableQuantity: 4}}
	svc := application.NewService(slog.Default(), repo, nil)
	handler := NewHandler(slog.Default(), svc)

	req := httptest.NewRequest("GET", "/inventory/items/s1/ga", nil)
	resp := httptest.NewRecorder()

	handler.Routes().ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, float64(6), payload["held_quantity"])
}
