package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PaymentClient drives the full intent lifecycle against the server:
// one initiation call, then status polls until terminal or capped.
type PaymentClient struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Poll       Config
}

func NewPaymentClient(baseURL string) *PaymentClient {
	return &PaymentClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Poll:       DefaultConfig(),
	}
}

type initiateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		CheckoutRequestID string `json:"checkoutRequestId"`
	} `json:"data"`
}

type statusResponse struct {
	Success bool `json:"success"`
	Payment struct {
		Status     string `json:"status"`
		ResultDesc string `json:"resultDesc"`
	} `json:"payment"`
}

// Initiate posts the initiation request and returns the provider
// transaction id. A rejection is returned as an error; no polling
// should follow.
func (c *PaymentClient) Initiate(ctx context.Context, phoneNumber string, amount float64, description string) (string, error) {
	payload := map[string]interface{}{
		"phoneNumber": phoneNumber,
	}
	if amount > 0 {
		payload["amount"] = amount
	}
	if description != "" {
		payload["description"] = description
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal initiate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/payments/initiate", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("initiate request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode initiate response: %w", err)
	}

	if !decoded.Success || decoded.Data.CheckoutRequestID == "" {
		message := decoded.Message
		if message == "" {
			message = fmt.Sprintf("initiation rejected with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("payment initiation failed: %s", message)
	}

	return decoded.Data.CheckoutRequestID, nil
}

// CheckStatus performs one status poll for the reference.
func (c *PaymentClient) CheckStatus(ctx context.Context, reference string) (string, string, error) {
	endpoint := fmt.Sprintf("%s/api/payments/status?reference=%s", c.BaseURL, url.QueryEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("failed to decode status response: %w", err)
	}

	return decoded.Payment.Status, decoded.Payment.ResultDesc, nil
}

// Pay runs the whole flow: initiate, then poll to a terminal outcome.
// An initiation failure is returned immediately without polling.
func (c *PaymentClient) Pay(ctx context.Context, phoneNumber string, amount float64, description string) (Result, error) {
	reference, err := c.Initiate(ctx, phoneNumber, amount, description)
	if err != nil {
		return Result{}, err
	}

	result := Poll(ctx, c.Poll, func(ctx context.Context) (string, string, error) {
		return c.CheckStatus(ctx, reference)
	})
	return result, nil
}

// StartPay is Pay with a cancellation handle, for callers that may abort
// (user navigates away, UI unmounts).
func (c *PaymentClient) StartPay(ctx context.Context, phoneNumber string, amount float64, description string) (*Handle, error) {
	reference, err := c.Initiate(ctx, phoneNumber, amount, description)
	if err != nil {
		return nil, err
	}

	return Start(ctx, c.Poll, func(ctx context.Context) (string, string, error) {
		return c.CheckStatus(ctx, reference)
	}), nil
}
