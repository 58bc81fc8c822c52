// Package inventoryhttp is the Orchestrator's HTTP client for the
// Inventory Service. Every call is bounded by a per-request timeout
// and retries a transient 503 with jittered backoff before surfacing
// INVENTORY_SERVICE_UNAVAILABLE to the caller.
package inventoryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	callTimeout time.Duration
	maxRetries  uint64
}

func NewClient(baseURL string, callTimeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		callTimeout: callTimeout,
		maxRetries:  3,
	}
}

type HoldRequest struct {
	HoldID       string    `json:"hold_id"`
	SessionID    string    `json:"session_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type HoldResponse struct {
	Success           bool `json:"success"`
	AvailableQuantity int  `json:"available_quantity"`
}

func (c *Client) Hold(ctx context.Context, req HoldRequest) (HoldResponse, error) {
	var out HoldResponse
	err := c.doWithRetry(ctx, http.MethodPost, "/inventory/hold", req, &out)
	return out, err
}

type holdIDRequest struct {
	HoldID string `json:"hold_id"`
}

func (c *Client) Release(ctx context.Context, holdID string) error {
	return c.doWithRetry(ctx, http.MethodPost, "/inventory/release", holdIDRequest{HoldID: holdID}, nil)
}

func (c *Client) Commit(ctx context.Context, holdID string) error {
	return c.doWithRetry(ctx, http.MethodPost, "/inventory/commit", holdIDRequest{HoldID: holdID}, nil)
}

// doWithRetry issues one HTTP call per attempt, treating a 503 (or a
// transport-level failure) as retryable and everything else — success
// or a domain error like 409 insufficient inventory — as final.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body, out any) error {
	backoff := retry.NewExponential(100 * time.Millisecond)
	backoff = retry.WithMaxRetries(c.maxRetries, backoff)
	backoff = retry.WithJitterPercent(20, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		status, respBody, err := c.doOnce(callCtx, method, path, body)
		if err != nil {
			return retry.RetryableError(domainerrors.New(domainerrors.KindInventoryUnavailable, "inventory service unreachable"))
		}

		switch {
		case status == http.StatusServiceUnavailable:
			return retry.RetryableError(domainerrors.New(domainerrors.KindInventoryUnavailable, "inventory service unavailable"))
		case status == http.StatusConflict:
			return decodeInsufficientInventory(respBody)
		case status >= 200 && status < 300:
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return domainerrors.Internal(err, "decode inventory response")
				}
			}
			return nil
		case status == http.StatusNotFound:
			return domainerrors.New(domainerrors.KindHoldNotFound, "hold not found")
		default:
			return domainerrors.Wrap(domainerrors.KindInternal, fmt.Errorf("unexpected status %d", status), "inventory service error")
		}
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func decodeInsufficientInventory(body []byte) error {
	var payload struct {
		AvailableQuantity int `json:"available_quantity"`
	}
	_ = json.Unmarshal(body, &payload)
	return domainerrors.New(domainerrors.KindInsufficientInventory, "insufficient inventory")
}
