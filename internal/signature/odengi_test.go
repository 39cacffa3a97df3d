package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignODengi(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		got := SignODengi([]byte(`{"cmd":"createInvoice"}`), "secret")
		assert.Equal(t, "d1d060fd1a58e5dc834803d70eda1282", got)
	})

	t.Run("secret changes signature", func(t *testing.T) {
		payload := []byte(`{"cmd":"statusPayment"}`)
		assert.NotEqual(t, SignODengi(payload, "secret-a"), SignODengi(payload, "secret-b"))
	})

	t.Run("payload changes signature", func(t *testing.T) {
		assert.NotEqual(t,
			SignODengi([]byte(`{"a":1}`), "secret"),
			SignODengi([]byte(`{"a":2}`), "secret"))
	})
}

func TestSignODengiCallback(t *testing.T) {
	fields := []string{"T-100", "3", "site-1", "ORD-42", "49000", "417", "1724831000000", "1"}

	t.Run("known vector", func(t *testing.T) {
		got := SignODengiCallback(fields, "cb-secret")
		assert.Equal(t, "816022f4f74faba291a3acd36b8ca8a6", got)
	})

	t.Run("field order matters", func(t *testing.T) {
		swapped := []string{"3", "T-100", "site-1", "ORD-42", "49000", "417", "1724831000000", "1"}
		assert.NotEqual(t, SignODengiCallback(fields, "cb-secret"), SignODengiCallback(swapped, "cb-secret"))
	})
}

func TestVerifyODengiCallback(t *testing.T) {
	fields := []string{"T-100", "3", "site-1", "ORD-42", "49000", "417", "1724831000000", "1"}
	secret := "cb-secret"
	valid := SignODengiCallback(fields, secret)

	t.Run("accepts valid signature", func(t *testing.T) {
		assert.True(t, VerifyODengiCallback(fields, secret, valid))
	})

	t.Run("rejects flipped signature", func(t *testing.T) {
		tampered := []byte(valid)
		if tampered[0] == 'a' {
			tampered[0] = 'b'
		} else {
			tampered[0] = 'a'
		}
		assert.False(t, VerifyODengiCallback(fields, secret, string(tampered)))
	})

	t.Run("rejects empty signature", func(t *testing.T) {
		assert.False(t, VerifyODengiCallback(fields, secret, ""))
	})

	t.Run("rejects tampered fields", func(t *testing.T) {
		tampered := append([]string{}, fields...)
		tampered[4] = "99000"
		assert.False(t, VerifyODengiCallback(tampered, secret, valid))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		assert.False(t, VerifyODengiCallback(fields, "other-secret", valid))
	})
}
