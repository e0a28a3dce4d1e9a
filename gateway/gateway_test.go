package gateway

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"earnspark-server/config"
	"earnspark-server/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviderConfig(name, baseURL string) *config.ProviderConfig {
	return &config.ProviderConfig{
		Name:     name,
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Username: "test-user",
		Password: "test-pass",
		Timeout:  5 * time.Second,
	}
}

func TestDecodeStatusResultCodeZero(t *testing.T) {
	body := []byte(`{"status":"FAILED","response":{"ResultCode":"0","ResultDesc":"The service request is processed successfully.","MpesaReceiptNumber":"SGH4X1TJ2K"}}`)

	res := decodeStatus(200, body, []string{"response"})

	require.True(t, res.Parsed)
	require.NotNil(t, res.Result)
	require.NotNil(t, res.Result.ResultCode)
	assert.Equal(t, "0", *res.Result.ResultCode)
	assert.Equal(t, "SGH4X1TJ2K", res.Result.ReceiptNumber)
	// The top-level status string is carried but never authoritative.
	assert.Equal(t, "FAILED", res.TopStatus)
}

func TestDecodeStatusNumericResultCode(t *testing.T) {
	body := []byte(`{"response":{"ResultCode":1032,"ResultDesc":"Request cancelled by user"}}`)

	res := decodeStatus(200, body, []string{"response"})

	require.True(t, res.Parsed)
	require.NotNil(t, res.Result.ResultCode)
	assert.Equal(t, "1032", *res.Result.ResultCode)
	assert.Equal(t, "Request cancelled by user", res.Result.ResultDesc)
}

func TestDecodeStatusMissingResultCode(t *testing.T) {
	body := []byte(`{"status":"success","response":{"Amount":"150"}}`)

	res := decodeStatus(200, body, []string{"response"})

	require.True(t, res.Parsed)
	assert.Equal(t, "success", res.TopStatus)
	assert.Nil(t, res.Result.ResultCode)
}

func TestDecodeStatusNonJSONBody(t *testing.T) {
	res := decodeStatus(502, []byte("<html>Bad Gateway</html>"), []string{"response"})

	assert.False(t, res.Parsed)
	assert.Nil(t, res.Result)
	assert.Equal(t, 502, res.HTTPStatus)
}

func TestDecodeStatusFlatContainer(t *testing.T) {
	body := []byte(`{"ResultCode":"0","ResultDesc":"ok"}`)

	res := decodeStatus(200, body, []string{"response", "data"})

	require.True(t, res.Parsed)
	require.NotNil(t, res.Result.ResultCode)
	assert.Equal(t, "0", *res.Result.ResultCode)
}

func TestPayHeroInitiateAccepted(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/payments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"status":"QUEUED","CheckoutRequestID":"ws_CO_123"}`))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("payhero", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	res, err := client.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "254712345678",
		Amount:      decimal.NewFromInt(150),
		Reference:   "ESP-1-abc",
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, "ws_CO_123", res.TransactionID)
	assert.Contains(t, gotAuth, "Basic ")
}

func TestPayHeroInitiateSnakeCaseTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"checkout_request_id":"ws_CO_456"}}`))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("payhero", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	res, err := client.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "254712345678",
		Amount:      decimal.NewFromInt(150),
		Reference:   "ESP-1-abc",
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, "ws_CO_456", res.TransactionID)
}

func TestPayHeroInitiateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error_message":"Insufficient channel balance"}`))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("payhero", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	res, err := client.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "254712345678",
		Amount:      decimal.NewFromInt(150),
		Reference:   "ESP-1-abc",
	})
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, "Insufficient channel balance", res.Message)
}

func TestPayHeroInitiateUnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("upstream timeout"))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("payhero", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "254712345678",
		Amount:      decimal.NewFromInt(150),
		Reference:   "ESP-1-abc",
	})
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestPayHeroQueryStatusNonJSONIsInconclusive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>Bad Gateway</html>"))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("payhero", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	res, err := client.QueryStatus(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.False(t, res.Parsed)
}

func TestPayHeroQueryStatusLogsInconclusiveBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>Bad Gateway</html>"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	client, err := New(testProviderConfig("payhero", srv.URL), logger.NewWithWriter(&buf, "WARN"))
	require.NoError(t, err)

	res, err := client.QueryStatus(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.False(t, res.Parsed)
	assert.Contains(t, buf.String(), "Bad Gateway")
}

func TestPayHeroQueryStatusNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client, err := New(testProviderConfig("payhero", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	_, err = client.QueryStatus(context.Background(), "ws_CO_123")
	assert.Error(t, err)
}

func TestSwiftPayInitiateAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/stk/initiate", r.URL.Path)
		w.Write([]byte(`{"success":true,"message":"STK push sent","data":{"CheckoutRequestID":"ws_CO_789"}}`))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("swiftpay", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	res, err := client.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "254712345678",
		Amount:      decimal.NewFromInt(150),
		Reference:   "ESP-1-abc",
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, "ws_CO_789", res.TransactionID)
}

func TestSwiftPayQueryStatusNestedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"ResultCode":"1032","ResultDesc":"Request cancelled by user"}}`))
	}))
	defer srv.Close()

	client, err := New(testProviderConfig("swiftpay", srv.URL), logger.New("ERROR"))
	require.NoError(t, err)

	res, err := client.QueryStatus(context.Background(), "ws_CO_789")
	require.NoError(t, err)

	require.True(t, res.Parsed)
	require.NotNil(t, res.Result.ResultCode)
	assert.Equal(t, "1032", *res.Result.ResultCode)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(testProviderConfig("paypal", "http://example.com"), logger.New("ERROR"))
	assert.Error(t, err)
}
