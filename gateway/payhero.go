package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"earnspark-server/config"
	"earnspark-server/pkg/logger"
	"earnspark-server/utils"
)

// PayHero talks to the PayHero payments API. Credentials are HTTP basic
// (API username/password); the transaction id comes back under
// CheckoutRequestID in one of several casings.
type PayHero struct {
	config     *config.ProviderConfig
	httpClient *http.Client
	logger     *logger.Logger
}

type payHeroInitiatePayload struct {
	Amount            string `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ChannelID         string `json:"channel_id,omitempty"`
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
	Description       string `json:"description,omitempty"`
	CallbackURL       string `json:"callback_url,omitempty"`
}

func (p *PayHero) authHeader() string {
	credentials := p.config.Username + ":" + p.config.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// Initiate sends an STK push request. A transport failure is returned as
// an error; a decodable rejection comes back as Accepted=false with the
// provider's message.
func (p *PayHero) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := payHeroInitiatePayload{
		Amount:            req.Amount.String(),
		PhoneNumber:       utils.NormalizePhoneNumber(req.PhoneNumber),
		ChannelID:         p.config.ChannelID,
		Provider:          "m-pesa",
		ExternalReference: req.Reference,
		Description:       req.Description,
		CallbackURL:       p.config.CallbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initiate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/payments", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initiate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", p.authHeader())

	resp, err := p.httpClient.Do(httpReq)
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
		p.logger.Warn("Provider returned non-JSON initiation body",
			"http_status", resp.StatusCode, "body", string(raw))
		return nil, fmt.Errorf("%w: %s", ErrUnparsable, string(raw))
	}

	result := &InitiateResult{RawBody: raw}
	result.TransactionID, _ = stringField(decoded,
		"CheckoutRequestID", "checkout_request_id", "checkoutRequestId", "reference")
	if result.TransactionID == "" {
		if data, ok := childObject(decoded, "data", "response"); ok {
			result.TransactionID, _ = stringField(data,
				"CheckoutRequestID", "checkout_request_id", "checkoutRequestId", "reference")
		}
	}
	result.Message, _ = stringField(decoded, "message", "error_message", "error")

	success, _ := decoded["success"].(bool)
	status, _ := stringField(decoded, "status")
	result.Accepted = resp.StatusCode < 300 && (success || status == "QUEUED") && result.TransactionID != ""

	return result, nil
}

// QueryStatus fetches the transaction status by reference. A non-JSON
// body is reported as Parsed=false, never as an error.
func (p *PayHero) QueryStatus(ctx context.Context, idOrReference string) (*StatusResult, error) {
	endpoint := fmt.Sprintf("%s/transaction-status?reference=%s", p.config.BaseURL, url.QueryEscape(idOrReference))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Authorization", p.authHeader())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider status response: %w", err)
	}

	// PayHero nests the M-Pesa result under "response" on some
	// deployments and returns it flat on others.
	status := decodeStatus(resp.StatusCode, raw, []string{"response", "data"})
	if !status.Parsed || resp.StatusCode >= 300 {
		p.logger.Warn("Provider status response inconclusive",
			"http_status", resp.StatusCode, "body", string(raw))
	}
	return status, nil
}
