// Package orderhttp is the Orchestrator's HTTP client for the Order
// Service, used to implement the public POST /api/checkout proxy.
package orderhttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{}}
}

// Checkout forwards the raw request body and Idempotency-Key header
// to the Order Service's create-order endpoint and relays its status
// code and body back verbatim, so the Orchestrator never has to
// understand the order envelope shape to proxy it.
func (c *Client) Checkout(ctx context.Context, idempotencyKey string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return 0, nil, domainerrors.Internal(err, "build checkout request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, domainerrors.New(domainerrors.KindInternal, fmt.Sprintf("order service unreachable: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domainerrors.Internal(err, "read checkout response")
	}
	return resp.StatusCode, respBody, nil
}
