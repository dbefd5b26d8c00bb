// Package httpclient implements the specialist contract over HTTP/JSON:
// POST {endpoint}/query for answers, GET {endpoint}/health for probes.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ninefold/internal/specialist"
)

// Client is a shared HTTP client for all specialist endpoints. It is safe
// for concurrent use.
type Client struct {
	http *http.Client
}

// New creates a client. The passed http.Client controls connection pooling;
// nil gets a default with a conservative overall timeout as a backstop
// behind per-call context deadlines.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{http: httpClient}
}

type queryResponse struct {
	Response  string   `json:"response"`
	Certainty *float64 `json:"certainty,omitempty"`
}

// Query posts the request to the specialist's query endpoint and decodes the
// uniform response shape. Context cancellation aborts the call.
func (c *Client) Query(ctx context.Context, endpoint string, req specialist.Request) (specialist.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return specialist.Response{}, fmt.Errorf("marshal specialist request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/query", bytes.NewReader(body))
	if err != nil {
		return specialist.Response{}, fmt.Errorf("build specialist request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return specialist.Response{}, fmt.Errorf("query specialist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return specialist.Response{}, fmt.Errorf("query specialist: unexpected status %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return specialist.Response{}, fmt.Errorf("decode specialist response: %w", err)
	}

	out := specialist.Response{
		Text:    decoded.Response,
		Latency: time.Since(start),
	}
	if decoded.Certainty != nil {
		out.Certainty = *decoded.Certainty
		out.CertaintyReported = true
	}
	return out, nil
}

// Check performs the lightweight health probe.
func (c *Client) Check(ctx context.Context, endpoint string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}
