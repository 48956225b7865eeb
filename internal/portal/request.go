package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const contentType = "application/json"

func (c *Client) postJSON(ctx context.Context, path string, payload any, target any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, target any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}

	c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	return c.do(req, target)
}

// do executes the request and decodes the JSON body into target when it is
// non-nil. The status code is always returned so callers can apply their own
// policy on non-2xx responses.
func (c *Client) do(req *http.Request, target any) (int, error) {
	c.logger.Debug("portal request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if target != nil && len(data) > 0 {
		if err := json.Unmarshal(data, target); err != nil {
			return resp.StatusCode, fmt.Errorf("decode portal response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
}
