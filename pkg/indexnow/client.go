// Package indexnow is a thin client for the external URL-indexing API.
// Submission carries no business logic; jobs and quotas live in the service
// layer.
package indexnow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client submits URL notifications to the indexing vendor.
type Client struct {
	endpoint string
	apiKey   string
	hc       *http.Client
}

// NewClient creates an indexing API client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		hc:       &http.Client{Timeout: timeout},
	}
}

// SubmitURL notifies the indexing API that a URL was updated.
func (c *Client) SubmitURL(ctx context.Context, url string) error {
	body, err := json.Marshal(map[string]string{
		"url":  url,
		"type": "URL_UPDATED",
	})
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("submit %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("submit %s: status %d", url, resp.StatusCode)
	}
	return nil
}
