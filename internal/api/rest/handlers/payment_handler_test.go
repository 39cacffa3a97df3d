package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/qr"
	"github.com/mnogorolly/payment-service/internal/repository"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

type stubPaymentService struct {
	artifact *domain.PaymentArtifact
	invoice  *domain.Invoice
	err      error
}

func (s *stubPaymentService) CreatePayment(context.Context, domain.PaymentRequest) (*domain.PaymentArtifact, error) {
	return s.artifact, s.err
}

func (s *stubPaymentService) CheckStatus(context.Context, string, domain.Gateway) (*domain.Invoice, error) {
	return s.invoice, s.err
}

func (s *stubPaymentService) Cancel(context.Context, string, domain.Gateway) (*domain.Invoice, error) {
	return s.invoice, s.err
}

func (s *stubPaymentService) ListInvoices(context.Context, repository.ListFilter) ([]*domain.Invoice, error) {
	return nil, s.err
}

func (s *stubPaymentService) Banks() []qr.Bank { return nil }

func paymentRouter(svc *stubPaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(svc, logger.New(logger.ERROR))
	router := gin.New()
	router.POST("/api/v1/payments", h.CreatePayment)
	router.GET("/api/v1/payments/:orderId/status", h.GetStatus)
	router.POST("/api/v1/payments/:orderId/cancel", h.CancelPayment)
	return router
}

func TestCreatePaymentHandler(t *testing.T) {
	validBody := `{"order_id":"ORD-1","amount_minor":49000,"currency":"417","gateway":"bank_qr","bank_key":"mbank"}`

	t.Run("created", func(t *testing.T) {
		svc := &stubPaymentService{artifact: &domain.PaymentArtifact{InvoiceID: "id-1", QRURL: "url"}}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(validBody))
		paymentRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"qr_url":"url"`)
	})

	t.Run("binding failure", func(t *testing.T) {
		svc := &stubPaymentService{}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"order_id":""}`))
		paymentRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
		}{
			{domain.ErrInvalidAmount, http.StatusBadRequest},
			{domain.ErrUnsupportedBank, http.StatusBadRequest},
			{domain.ErrInvoiceNotFound, http.StatusNotFound},
			{domain.ErrAlreadyFinalized, http.StatusConflict},
			{domain.ErrNetworkTimeout, http.StatusGatewayTimeout},
			{domain.NewProviderError(domain.GatewayODengi, "err", "blocked", nil), http.StatusBadGateway},
		}
		for _, tt := range tests {
			svc := &stubPaymentService{err: tt.err}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(validBody))
			paymentRouter(svc).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, "error %v", tt.err)
		}
	})
}

func TestStatusAndCancelHandlers(t *testing.T) {
	invoice := &domain.Invoice{OrderID: "ORD-1", Status: domain.InvoiceStatusPaid}

	t.Run("status", func(t *testing.T) {
		svc := &stubPaymentService{invoice: invoice}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ORD-1/status?gateway=odengi", nil)
		paymentRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"paid"`)
	})

	t.Run("cancel conflict", func(t *testing.T) {
		svc := &stubPaymentService{err: domain.ErrAlreadyFinalized}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/ORD-1/cancel?gateway=odengi", nil)
		paymentRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
