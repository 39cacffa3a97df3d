package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway/freedompay"
	"github.com/mnogorolly/payment-service/internal/gateway/odengi"
	"github.com/mnogorolly/payment-service/internal/kafka/producer"
	"github.com/mnogorolly/payment-service/internal/metrics"
	"github.com/mnogorolly/payment-service/internal/repository"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// ODengiCallbackVerifier проверяет подпись callback-а O!Dengi
type ODengiCallbackVerifier interface {
	VerifyCallback(cb odengi.Callback) bool
}

// FreedomPayCallbackVerifier проверяет подпись уведомления FreedomPay
type FreedomPayCallbackVerifier interface {
	VerifyResult(params map[string]string) bool
}

// WebhookService обрабатывает входящие уведомления шлюзов.
// Непроверенное уведомление никогда не меняет состояние инвойса.
type WebhookService interface {
	HandleODengiCallback(ctx context.Context, cb odengi.Callback) error
	HandleFreedomPayCallback(ctx context.Context, params map[string]string) error
}

type webhookService struct {
	repo       repository.InvoiceRepository
	odengi     ODengiCallbackVerifier
	freedomPay FreedomPayCallbackVerifier
	events     producer.InvoiceProducer
	metrics    *metrics.PaymentMetrics
	log        *logger.Logger
}

// NewWebhookService создает сервис обработки уведомлений
func NewWebhookService(
	repo repository.InvoiceRepository,
	odengiVerifier ODengiCallbackVerifier,
	freedomPayVerifier FreedomPayCallbackVerifier,
	events producer.InvoiceProducer,
	m *metrics.PaymentMetrics,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		repo:       repo,
		odengi:     odengiVerifier,
		freedomPay: freedomPayVerifier,
		events:     events,
		metrics:    m,
		log:        log,
	}
}

// HandleODengiCallback обрабатывает уведомление O!Dengi. Промежуточный
// статус не меняет инвойс; неизвестный код статуса переводит в failed.
func (s *webhookService) HandleODengiCallback(ctx context.Context, cb odengi.Callback) error {
	if !s.odengi.VerifyCallback(cb) {
		s.metrics.SignatureFailures.WithLabelValues("odengi").Inc()
		s.log.Warnw("O!Dengi callback rejected: invalid signature",
			"orderID", cb.OrderID, "transID", cb.TransID)
		return domain.ErrInvalidSignature
	}

	invoice, err := s.repo.GetByOrderAndGateway(ctx, cb.OrderID, domain.GatewayODengi)
	if err != nil {
		return err
	}

	target, ok := targetStatus(cb.Settlement())
	if !ok {
		s.log.Debugw("O!Dengi callback: payment still pending",
			"orderID", cb.OrderID, "statusPay", cb.StatusPay)
		return nil
	}

	return s.apply(ctx, invoice.ID, target, func(inv *domain.Invoice) {
		if cb.TransID != "" {
			inv.ProviderInvoiceID = cb.TransID
		}
	})
}

// HandleFreedomPayCallback обрабатывает уведомление FreedomPay
func (s *webhookService) HandleFreedomPayCallback(ctx context.Context, params map[string]string) error {
	if !s.freedomPay.VerifyResult(params) {
		s.metrics.SignatureFailures.WithLabelValues("freedompay").Inc()
		s.log.Warnw("FreedomPay callback rejected: invalid signature",
			"orderID", params["pg_order_id"])
		return domain.ErrInvalidSignature
	}

	cb := freedompay.ParseResult(params)
	invoice, err := s.repo.GetByOrderAndGateway(ctx, cb.OrderID, domain.GatewayFreedomPay)
	if err != nil {
		return err
	}

	target := domain.InvoiceStatusFailed
	if cb.Success {
		target = domain.InvoiceStatusPaid
	}

	return s.apply(ctx, invoice.ID, target, func(inv *domain.Invoice) {
		if cb.PaymentID != "" {
			inv.ProviderInvoiceID = cb.PaymentID
		}
	})
}

// apply применяет переход; повтор уже достигнутого терминального
// статуса проходит как идемпотентный no-op.
func (s *webhookService) apply(ctx context.Context, id uuid.UUID, target domain.InvoiceStatus, update func(*domain.Invoice)) error {
	invoice, changed, err := s.repo.Transition(ctx, id, target, update)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.metrics.InvoiceStatus.WithLabelValues(string(invoice.Gateway), string(invoice.Status)).Inc()
	if err := s.events.PublishStatusChange(invoice); err != nil {
		s.log.Warnw("Invoice event not published",
			"invoiceID", invoice.ID, "status", invoice.Status, "error", err)
	}

	s.log.Infow("Invoice status updated from callback",
		"invoiceID", invoice.ID, "orderID", invoice.OrderID, "status", invoice.Status)
	return nil
}
