package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway/odengi"
	"github.com/mnogorolly/payment-service/internal/metrics"
	"github.com/mnogorolly/payment-service/internal/repository"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

type stubODengiVerifier struct{ ok bool }

func (s stubODengiVerifier) VerifyCallback(odengi.Callback) bool { return s.ok }

type stubFreedomPayVerifier struct{ ok bool }

func (s stubFreedomPayVerifier) VerifyResult(map[string]string) bool { return s.ok }

type webhookFixture struct {
	svc      WebhookService
	repo     repository.InvoiceRepository
	producer *recordingProducer
}

func newWebhookFixture(odengiOK, freedomOK bool) *webhookFixture {
	f := &webhookFixture{
		repo:     repository.NewMemoryInvoiceRepository(),
		producer: newRecordingProducer(),
	}
	f.svc = NewWebhookService(f.repo,
		stubODengiVerifier{ok: odengiOK},
		stubFreedomPayVerifier{ok: freedomOK},
		f.producer, metrics.NewPaymentMetrics(), logger.New(logger.ERROR))
	return f
}

func (f *webhookFixture) seed(t *testing.T, gw domain.Gateway, status domain.InvoiceStatus) *domain.Invoice {
	t.Helper()
	now := time.Now()
	inv := &domain.Invoice{
		ID:          uuid.New(),
		OrderID:     "ORD-1",
		Gateway:     gw,
		AmountMinor: 49000,
		Currency:    "417",
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.repo.Create(context.Background(), inv))
	return inv
}

func paidCallback() odengi.Callback {
	return odengi.Callback{
		TransID:   "T-100",
		StatusPay: 3,
		SiteID:    "site-1",
		OrderID:   "ORD-1",
		Amount:    49000,
		Currency:  "417",
		Mktime:    "1724831000000",
		Test:      1,
		Hash:      "deadbeef",
	}
}

func TestHandleODengiCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid signature never touches the invoice", func(t *testing.T) {
		f := newWebhookFixture(false, true)
		inv := f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

		err := f.svc.HandleODengiCallback(ctx, paidCallback())
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusProcessing, got.Status)
		assert.Equal(t, 0, f.producer.count(domain.InvoiceStatusPaid))
	})

	t.Run("paid callback finalizes the invoice", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		inv := f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

		require.NoError(t, f.svc.HandleODengiCallback(ctx, paidCallback()))

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
		assert.Equal(t, "T-100", got.ProviderInvoiceID)
		assert.Equal(t, 1, f.producer.count(domain.InvoiceStatusPaid))
	})

	t.Run("pending callback is a no-op", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		inv := f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

		cb := paidCallback()
		cb.StatusPay = 1
		require.NoError(t, f.svc.HandleODengiCallback(ctx, cb))

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusProcessing, got.Status)
	})

	t.Run("cancelled callback cancels the invoice", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		inv := f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

		cb := paidCallback()
		cb.StatusPay = 2
		require.NoError(t, f.svc.HandleODengiCallback(ctx, cb))

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, got.Status)
	})

	t.Run("unknown status code fails the invoice", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		inv := f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

		cb := paidCallback()
		cb.StatusPay = 42
		require.NoError(t, f.svc.HandleODengiCallback(ctx, cb))

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusFailed, got.Status)
	})

	t.Run("duplicate paid callback is idempotent", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

		require.NoError(t, f.svc.HandleODengiCallback(ctx, paidCallback()))
		require.NoError(t, f.svc.HandleODengiCallback(ctx, paidCallback()))

		assert.Equal(t, 1, f.producer.count(domain.InvoiceStatusPaid))
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		err := f.svc.HandleODengiCallback(ctx, paidCallback())
		assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	})
}

func TestHandleFreedomPayCallback(t *testing.T) {
	ctx := context.Background()

	params := func(result string) map[string]string {
		return map[string]string{
			"pg_order_id":   "ORD-1",
			"pg_payment_id": "889900",
			"pg_result":     result,
			"pg_sig":        "deadbeef",
		}
	}

	t.Run("invalid signature never touches the invoice", func(t *testing.T) {
		f := newWebhookFixture(true, false)
		inv := f.seed(t, domain.GatewayFreedomPay, domain.InvoiceStatusProcessing)

		err := f.svc.HandleFreedomPayCallback(ctx, params("1"))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusProcessing, got.Status)
	})

	t.Run("successful result pays the invoice", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		inv := f.seed(t, domain.GatewayFreedomPay, domain.InvoiceStatusProcessing)

		require.NoError(t, f.svc.HandleFreedomPayCallback(ctx, params("1")))

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
		assert.Equal(t, "889900", got.ProviderInvoiceID)
	})

	t.Run("failed result fails the invoice", func(t *testing.T) {
		f := newWebhookFixture(true, true)
		inv := f.seed(t, domain.GatewayFreedomPay, domain.InvoiceStatusProcessing)

		require.NoError(t, f.svc.HandleFreedomPayCallback(ctx, params("0")))

		got, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusFailed, got.Status)
	})
}

func TestConcurrentCallbacksFinalizeOnce(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(true, true)
	inv := f.seed(t, domain.GatewayODengi, domain.InvoiceStatusProcessing)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = f.svc.HandleODengiCallback(ctx, paidCallback())
		}()
	}
	wg.Wait()

	got, err := f.repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)

	// Событие оплаты должно уйти ровно один раз
	assert.Equal(t, 1, f.producer.count(domain.InvoiceStatusPaid))
}
