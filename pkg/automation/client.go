// Package automation posts domain events to the marketing automation trigger endpoint.
package automation

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Event names
const (
	EventAffiliateConversion = "affiliate.conversion"
)

// Payload is the body sent to the trigger endpoint
type Payload struct {
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// Client delivers events. A client without a URL is disabled and Trigger is a no-op.
type Client struct {
	url        string
	key        string
	httpClient *http.Client
}

// NewClient creates a trigger client
func NewClient(url, key string) *Client {
	return &Client{
		url: url,
		key: key,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a trigger URL is configured
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Trigger posts one event. Non-2xx responses are errors.
func (c *Client) Trigger(ctx context.Context, event string, data map[string]any) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(Payload{Event: event, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal automation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create automation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Automation-Event", event)
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("X-Automation-Signature", Sign(body, c.key))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("automation trigger request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("automation trigger returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
