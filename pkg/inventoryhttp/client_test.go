package inventoryhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

func TestClientHoldSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inventory/hold", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HoldResponse{Success: true, AvailableQuantity: 7})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	resp, err := client.Hold(context.Background(), HoldRequest{HoldID: "hold-1", SessionID: "s1", TicketTypeID: "ga", Quantity: 2, ExpiresAt: time.Now()})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 7, resp.AvailableQuantity)
}

func TestClientHoldConflictMapsToInsufficientInventory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"available_quantity":0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Hold(context.Background(), HoldRequest{HoldID: "hold-1", Quantity: 2})

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindInsufficientInventory))
}

func TestClientHoldNotFoundMapsToHoldNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Release(context.Background(), "missing-hold")

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindHoldNotFound))
}

func TestClientRetriesServiceUnavailableThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HoldResponse{Success: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Hold(context.Background(), HoldRequest{HoldID: "hold-1", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestClientCommitSuccessSendsNoBodyDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inventory/commit", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Commit(context.Background(), "hold-1")

	require.NoError(t, err)
}
