package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() PaymentRequest {
	return PaymentRequest{
		OrderID:     "ORD-1",
		AmountMinor: 49000,
		Currency:    "417",
		Gateway:     GatewayBankQR,
		BankKey:     "mbank",
	}
}

func TestPaymentRequestValidate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, validRequest().Validate(100000000))
	})

	t.Run("zero amount", func(t *testing.T) {
		req := validRequest()
		req.AmountMinor = 0
		assert.ErrorIs(t, req.Validate(0), ErrInvalidAmount)
	})

	t.Run("negative amount", func(t *testing.T) {
		req := validRequest()
		req.AmountMinor = -100
		assert.ErrorIs(t, req.Validate(0), ErrInvalidAmount)
	})

	t.Run("amount above ceiling", func(t *testing.T) {
		req := validRequest()
		req.AmountMinor = 200
		assert.ErrorIs(t, req.Validate(100), ErrInvalidAmount)
	})

	t.Run("zero ceiling disables the check", func(t *testing.T) {
		req := validRequest()
		req.AmountMinor = 1 << 40
		assert.NoError(t, req.Validate(0))
	})

	t.Run("bad currency length", func(t *testing.T) {
		req := validRequest()
		req.Currency = "41"
		assert.ErrorIs(t, req.Validate(0), ErrUnsupportedCurrency)
	})

	t.Run("unknown gateway", func(t *testing.T) {
		req := validRequest()
		req.Gateway = "paypal"
		assert.ErrorIs(t, req.Validate(0), ErrUnsupportedGateway)
	})
}

func TestCurrencyAlpha(t *testing.T) {
	alpha, err := CurrencyAlpha("417")
	require.NoError(t, err)
	assert.Equal(t, "KGS", alpha)

	_, err = CurrencyAlpha("999")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}
