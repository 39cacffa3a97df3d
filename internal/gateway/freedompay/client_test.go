package freedompay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/signature"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

const testSecret = "fp-secret"

func testClient(t *testing.T, initURL, healthURL string) *Client {
	t.Helper()
	c := NewClient(Config{
		InitPaymentURL: initURL,
		HealthcheckURL: healthURL,
		MerchantID:     "541000",
		Secret:         testSecret,
		Lifetime:       1800,
		SuccessURL:     "https://example.com/ok",
		FailureURL:     "https://example.com/fail",
		ResultURL:      "https://example.com/webhooks/freedompay",
	}, logger.New(logger.ERROR))
	c.salt = func() string { return "fixedsalt" }
	return c
}

func testRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		OrderID:     "ORD-42",
		AmountMinor: 49000,
		Currency:    "417",
		Gateway:     domain.GatewayFreedomPay,
		Description: "Заказ #ORD-42",
	}
}

func formParams(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	require.NoError(t, r.ParseForm())
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		params[k] = v[0]
	}
	return params
}

func TestInitPayment(t *testing.T) {
	t.Run("sends signed form and parses redirect", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := formParams(t, r)

			assert.Equal(t, "541000", params["pg_merchant_id"])
			assert.Equal(t, "490.00", params["pg_amount"])
			assert.Equal(t, "ORD-42", params["pg_order_id"])
			assert.Equal(t, "KGS", params["pg_currency"])
			assert.Equal(t, "1800", params["pg_lifetime"])
			assert.Equal(t, "fixedsalt", params["pg_salt"])
			assert.True(t, signature.VerifyFreedomPay(params, testSecret))

			json.NewEncoder(w).Encode(map[string]string{
				"pg_status":       "ok",
				"pg_payment_id":   "889900",
				"pg_redirect_url": "https://pay.freedompay.kg/pay/889900",
			})
		}))
		defer server.Close()

		result, err := testClient(t, server.URL, "").InitPayment(context.Background(), testRequest())
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "889900", result.ProviderInvoiceID)
		assert.Equal(t, "https://pay.freedompay.kg/pay/889900", result.Target)
	})

	t.Run("amount is formatted in major units", func(t *testing.T) {
		tests := []struct {
			minor int64
			want  string
		}{
			{49000, "490.00"},
			{100, "1.00"},
			{101, "1.01"},
			{5, "0.05"},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, formatAmount(tt.minor))
		}
	})

	t.Run("provider rejection is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			json.NewEncoder(w).Encode(map[string]string{
				"pg_status":            "error",
				"pg_error_code":        "101",
				"pg_error_description": "invalid merchant",
			})
		}))
		defer server.Close()

		_, err := testClient(t, server.URL, "").InitPayment(context.Background(), testRequest())
		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.Equal(t, "101", providerErr.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"pg_status":       "ok",
				"pg_payment_id":   "1",
				"pg_redirect_url": "u",
			})
		}))
		defer server.Close()

		result, err := testClient(t, server.URL, "").InitPayment(context.Background(), testRequest())
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestHealthcheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		assert.NoError(t, testClient(t, "", server.URL).Healthcheck(context.Background()))
	})

	t.Run("unhealthy status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		err := testClient(t, "", server.URL).Healthcheck(context.Background())
		var providerErr *domain.ProviderError
		assert.ErrorAs(t, err, &providerErr)
	})
}

func TestParseResult(t *testing.T) {
	t.Run("successful payment", func(t *testing.T) {
		cb := ParseResult(map[string]string{
			"pg_order_id":   "ORD-42",
			"pg_payment_id": "889900",
			"pg_amount":     "490.00",
			"pg_currency":   "KGS",
			"pg_result":     "1",
		})
		assert.True(t, cb.Success)
		assert.Equal(t, "ORD-42", cb.OrderID)
		assert.Equal(t, "889900", cb.PaymentID)
	})

	t.Run("failed payment", func(t *testing.T) {
		cb := ParseResult(map[string]string{
			"pg_order_id":          "ORD-42",
			"pg_result":            "0",
			"pg_error_description": "insufficient funds",
		})
		assert.False(t, cb.Success)
		assert.Equal(t, "insufficient funds", cb.ErrorDescr)
	})
}

func TestVerifyResult(t *testing.T) {
	c := testClient(t, "", "")
	params := map[string]string{
		"pg_order_id":   "ORD-42",
		"pg_payment_id": "889900",
		"pg_result":     "1",
		"pg_salt":       "somesalt",
	}
	params[signature.FreedomPaySignatureParam] = signature.SignFreedomPay(params, testSecret)

	assert.True(t, c.VerifyResult(params))

	params["pg_result"] = "0"
	assert.False(t, c.VerifyResult(params))
}
