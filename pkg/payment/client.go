package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Client talks to the hosted payment gateway's REST API using server-key
// basic auth (Midtrans-style).
type Client struct {
	baseURL   string
	serverKey string
	hc        *http.Client
}

// NewClient creates a gateway client.
func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		hc:        &http.Client{Timeout: 30 * time.Second},
	}
}

// CreatePaymentLink creates a hosted checkout session and returns its URL.
func (c *Client) CreatePaymentLink(ctx context.Context, p CreateLinkParams) (string, error) {
	body := map[string]any{
		"transaction_details": map[string]any{
			"order_id":     p.OrderID,
			"gross_amount": p.Amount,
		},
		"item_details": []map[string]any{
			{"id": p.OrderID, "name": p.ItemName, "price": p.Amount, "quantity": 1},
		},
		"custom_field1": p.UserID,
	}

	var resp struct {
		RedirectURL string `json:"redirect_url"`
	}
	if err := c.post(ctx, "/snap/v1/transactions", body, &resp); err != nil {
		return "", err
	}
	if resp.RedirectURL == "" {
		return "", fmt.Errorf("gateway returned empty redirect_url for order %s", p.OrderID)
	}
	return resp.RedirectURL, nil
}

// ChargeToken charges a saved card token for a recurring renewal.
func (c *Client) ChargeToken(ctx context.Context, p ChargeParams) (*ChargeResult, error) {
	body := map[string]any{
		"payment_type": "credit_card",
		"transaction_details": map[string]any{
			"order_id":     p.OrderID,
			"gross_amount": p.Amount,
		},
		"credit_card": map[string]any{
			"token_id": p.CardToken,
		},
	}

	var resp struct {
		TransactionID     string `json:"transaction_id"`
		TransactionStatus string `json:"transaction_status"`
		FraudStatus       string `json:"fraud_status"`
		StatusCode        string `json:"status_code"`
		StatusMessage     string `json:"status_message"`
	}
	if err := c.post(ctx, "/v2/charge", body, &resp); err != nil {
		return nil, err
	}

	result := &ChargeResult{
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
	}
	if code, err := strconv.Atoi(resp.StatusCode); err == nil && code >= 400 {
		return result, fmt.Errorf("%w: %s", ErrChargeDeclined, resp.StatusMessage)
	}
	return result, nil
}

// VerifyNotification checks a webhook notification's signature.
func (c *Client) VerifyNotification(n Notification) bool {
	return n.VerifySignature(c.serverKey)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("gateway request %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
