package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// exchange is one request and the status that counts as success. out, when
// set, receives the decoded body.
type exchange struct {
	method string
	path   string
	token  string
	in     any
	out    any
	want   int
}

// send performs the request and hands back the raw response.
func (c *SDKClient) send(ctx context.Context, x exchange) (*http.Response, error) {
	var body io.Reader
	if x.in != nil {
		b, err := json.Marshal(x.in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, x.method, c.BaseURL+x.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.token != "" {
		req.Header.Set("Authorization", "Bearer "+x.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// do runs x to completion. Any status other than x.want becomes an
// *APIError.
func (c *SDKClient) do(ctx context.Context, x exchange) error {
	resp, err := c.send(ctx, x)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != x.want {
		return parseErrorResponse(resp, raw)
	}
	if x.out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, x.out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do runs x with the session's access token, refreshing it first when it is
// about to expire.
func (s *Session) do(ctx context.Context, x exchange) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	x.token = token
	return s.client.do(ctx, x)
}
