package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the external payment processor's REST API. Amounts cross
// this boundary as decimal strings ("120.50"); the processor rejects floats.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	APIVersion string
}

func (c Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) (int, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if c.APIVersion == "" {
		c.APIVersion = "2025-06"
	}
	if c.BaseURL == "" || c.APIKey == "" {
		return 0, fmt.Errorf("missing processor base url or api key")
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Processor-Version", c.APIVersion)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	// Surface the processor error body for non-2xx so callers can see declined
	// reasons, missing scopes, etc.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(b) > 0 {
			return resp.StatusCode, fmt.Errorf("processor api error: status=%d body=%s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, fmt.Errorf("processor api error: status=%d", resp.StatusCode)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
