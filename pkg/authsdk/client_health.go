package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Live fetches /livez.
func (c *SDKClient) Live(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, exchange{method: http.MethodGet, path: "/livez", out: &health, want: http.StatusOK}); err != nil {
		return nil, err
	}
	return &health, nil
}

// Ready fetches /readyz. A degraded service answers 503: the error is an
// *APIError and the report, when the body holds one, is returned with it so
// callers can see which check failed.
func (c *SDKClient) Ready(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.send(ctx, exchange{method: http.MethodGet, path: "/readyz"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var report *HealthResponse
	var health HealthResponse
	if json.Unmarshal(body, &health) == nil && health.Status != "" {
		report = &health
	}

	switch {
	case resp.StatusCode == http.StatusOK && report != nil:
		return report, nil
	case resp.StatusCode == http.StatusOK:
		return nil, errors.New("failed to decode response: no health report")
	default:
		return report, parseErrorResponse(resp, body)
	}
}

// WaitReady polls Ready every interval until it succeeds or ctx is done. On
// timeout the last readiness error is joined to the context error.
func (c *SDKClient) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := c.Ready(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
