package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"earnspark-server/config"
	"earnspark-server/pkg/logger"
	"earnspark-server/utils"
)

// SwiftPay talks to the SwiftPay STK API. Credentials are a bearer API
// key; responses wrap their payload in a "data" object.
type SwiftPay struct {
	config     *config.ProviderConfig
	httpClient *http.Client
	logger     *logger.Logger
}

type swiftPayInitiatePayload struct {
	PhoneNumber string `json:"phone_number"`
	Amount      string `json:"amount"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// Initiate sends an STK push request.
func (s *SwiftPay) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := swiftPayInitiatePayload{
		PhoneNumber: utils.NormalizePhoneNumber(req.PhoneNumber),
		Amount:      req.Amount.String(),
		Reference:   req.Reference,
		Description: req.Description,
		CallbackURL: s.config.CallbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initiate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/stk/initiate", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initiate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		s.logger.Warn("Provider returned non-JSON initiation body",
			"http_status", resp.StatusCode, "body", string(raw))
		return nil, fmt.Errorf("%w: %s", ErrUnparsable, string(raw))
	}

	result := &InitiateResult{RawBody: raw}

	container := decoded
	if data, ok := childObject(decoded, "data"); ok {
		container = data
	}
	result.TransactionID, _ = stringField(container,
		"CheckoutRequestID", "checkout_request_id", "transaction_request_id", "TransactionID")
	result.Message, _ = stringField(decoded, "message", "error", "ResponseDescription")

	success, _ := decoded["success"].(bool)
	responseCode, _ := stringField(decoded, "ResponseCode", "response_code")
	result.Accepted = resp.StatusCode < 300 && (success || responseCode == "0") && result.TransactionID != ""

	return result, nil
}

// QueryStatus fetches the transaction status by checkout request id or
// reference. A non-JSON body is reported as Parsed=false, never as an
// error.
func (s *SwiftPay) QueryStatus(ctx context.Context, idOrReference string) (*StatusResult, error) {
	endpoint := fmt.Sprintf("%s/stk/status?reference=%s", s.config.BaseURL, url.QueryEscape(idOrReference))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider status response: %w", err)
	}

	status := decodeStatus(resp.StatusCode, raw, []string{"data"})
	if !status.Parsed || resp.StatusCode >= 300 {
		s.logger.Warn("Provider status response inconclusive",
			"http_status", resp.StatusCode, "body", string(raw))
	}
	return status, nil
}
