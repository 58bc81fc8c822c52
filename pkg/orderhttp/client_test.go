package orderhttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutForwardsBodyAndIdempotencyKey(t *testing.T) {
	var receivedKey string
	var receivedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedKey = r.Header.Get("Idempotency-Key")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"ord-1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	status, body, err := client.Checkout(context.Background(), "idem-key-1", []byte(`{"hold_id":"h1"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, `{"order_id":"ord-1"}`, string(body))
	assert.Equal(t, "idem-key-1", receivedKey)
	assert.Equal(t, `{"hold_id":"h1"}`, string(receivedBody))
}

func TestCheckoutRelaysErrorStatusVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"missing idempotency key"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	status, body, err := client.Checkout(context.Background(), "idem-key-1", []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "missing idempotency key")
}
