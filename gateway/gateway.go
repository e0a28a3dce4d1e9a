package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"earnspark-server/config"
	"earnspark-server/pkg/logger"

	"github.com/shopspring/decimal"
)

// ErrUnparsable marks a provider response body that could not be decoded
// as JSON during initiation. Handlers answer 502 for it.
var ErrUnparsable = errors.New("unparsable provider response")

// InitiateRequest describes an STK push request. PhoneNumber must already
// be normalized to the 254XXXXXXXXX form.
type InitiateRequest struct {
	PhoneNumber string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// InitiateResult is the normalized outcome of an initiation call.
// TransactionID is the provider-assigned identifier, recovered from
// whichever field the provider happened to use.
type InitiateResult struct {
	Accepted      bool
	TransactionID string
	Message       string
	RawBody       []byte
}

// ProviderResult is the result container extracted from a status
// response. ResultCode is nil when the provider did not include one;
// callers must treat that as inconclusive regardless of any top-level
// success claim.
type ProviderResult struct {
	ResultCode    *string
	ResultDesc    string
	ReceiptNumber string
	Amount        string
	PhoneNumber   string
}

// StatusResult is the normalized outcome of a status query. Parsed is
// false when the body was not JSON; the query is then inconclusive, not
// failed.
type StatusResult struct {
	HTTPStatus int
	RawBody    []byte
	Parsed     bool
	TopStatus  string
	Result     *ProviderResult
}

// Client is the provider gateway. One implementation per provider keeps
// each provider's response-shape quirks behind a single boundary.
type Client interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	QueryStatus(ctx context.Context, idOrReference string) (*StatusResult, error)
}

// New returns the gateway client selected by cfg.Name.
func New(cfg *config.ProviderConfig, log *logger.Logger) (Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Name {
	case "payhero":
		return &PayHero{config: cfg, httpClient: httpClient, logger: log}, nil
	case "swiftpay":
		return &SwiftPay{config: cfg, httpClient: httpClient, logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Name)
	}
}

// stringField reads a string value from a decoded JSON object, trying
// keys in order. Numeric values are rendered as their JSON literal.
func stringField(m map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val, true
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), true
		case json.Number:
			return val.String(), true
		}
	}
	return "", false
}

// childObject returns a nested JSON object, trying keys in order.
func childObject(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	for _, key := range keys {
		if child, ok := m[key].(map[string]interface{}); ok {
			return child, true
		}
	}
	return nil, false
}

// decodeStatus turns a raw status body into a StatusResult. containerKeys
// names the adapter's possible nesting levels for the result container;
// the container may also be the top-level object itself. A non-JSON body
// yields Parsed=false and no error.
func decodeStatus(httpStatus int, raw []byte, containerKeys []string) *StatusResult {
	res := &StatusResult{HTTPStatus: httpStatus, RawBody: raw}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return res
	}
	res.Parsed = true

	if top, ok := stringField(body, "status", "Status"); ok {
		res.TopStatus = top
	}

	container := body
	for _, key := range containerKeys {
		if child, ok := childObject(container, key); ok {
			container = child
		}
	}

	result := &ProviderResult{}
	if code, ok := stringField(container, "ResultCode", "resultCode", "result_code"); ok {
		result.ResultCode = &code
	}
	result.ResultDesc, _ = stringField(container, "ResultDesc", "resultDesc", "result_desc")
	result.ReceiptNumber, _ = stringField(container, "MpesaReceiptNumber", "mpesa_receipt_number", "receipt_number")
	result.Amount, _ = stringField(container, "Amount", "amount")
	result.PhoneNumber, _ = stringField(container, "PhoneNumber", "phone_number", "Phone")
	res.Result = result

	return res
}
