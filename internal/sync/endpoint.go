// Package sync implements the local-first sync engine.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Outcome is the result of one remote endpoint call. It is consumed
// immediately by the dispatcher or drainer and never persisted.
type Outcome struct {
	Success  bool   `json:"success"`
	RemoteID string `json:"remote_id,omitempty"`
	Error    string `json:"error,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Endpoint is the remote sync RPC boundary. Implementations must be
// idempotent or near-idempotent per mutation code: queued entries are
// redelivered after partial failures (at-least-once delivery).
type Endpoint interface {
	// Call sends one mutation. A non-nil error means the call itself
	// failed (network, timeout); an Outcome with Success false means the
	// backend rejected the mutation. Both are handled the same way by
	// the engine.
	Call(ctx context.Context, code MutationCode, payload json.RawMessage) (*Outcome, error)
}

// HTTPEndpoint sends mutations as JSON POSTs to a single RPC URL.
type HTTPEndpoint struct {
	url    string
	client *http.Client
}

// NewHTTPEndpoint creates an HTTPEndpoint with the given per-call timeout.
func NewHTTPEndpoint(url string, timeout time.Duration) *HTTPEndpoint {
	return &HTTPEndpoint{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// syncRequest is the wire shape of one RPC call.
type syncRequest struct {
	Code    string          `json:"code"`
	Payload json.RawMessage `json:"payload"`
}

// Call implements Endpoint.
func (e *HTTPEndpoint) Call(ctx context.Context, code MutationCode, payload json.RawMessage) (*Outcome, error) {
	body, err := json.Marshal(syncRequest{Code: code.String(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sync endpoint returned status %d", resp.StatusCode)
	}

	var outcome Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode sync response: %w", err)
	}

	return &outcome, nil
}
