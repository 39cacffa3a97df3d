package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway"
	"github.com/mnogorolly/payment-service/internal/kafka/producer"
	"github.com/mnogorolly/payment-service/internal/metrics"
	"github.com/mnogorolly/payment-service/internal/qr"
	"github.com/mnogorolly/payment-service/internal/repository"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Предел ожидания одного обращения к шлюзу внутри операции сервиса
const gatewayCallTimeout = 30 * time.Second

// QRGateway локальный шлюз банковских QR
type QRGateway interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest) (gateway.Result, error)
	Banks() []qr.Bank
}

// ODengiGateway шлюз O!Dengi
type ODengiGateway interface {
	CreateInvoice(ctx context.Context, req domain.PaymentRequest) (gateway.Result, error)
	Status(ctx context.Context, inv domain.Invoice) (gateway.StatusResult, error)
	Cancel(ctx context.Context, inv domain.Invoice) (gateway.Result, error)
}

// FreedomPayGateway шлюз FreedomPay
type FreedomPayGateway interface {
	InitPayment(ctx context.Context, req domain.PaymentRequest) (gateway.Result, error)
	Healthcheck(ctx context.Context) error
}

// PaymentService операции платежного контура
type PaymentService interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentArtifact, error)
	CheckStatus(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error)
	Cancel(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, filter repository.ListFilter) ([]*domain.Invoice, error)
	Banks() []qr.Bank
}

type paymentService struct {
	repo           repository.InvoiceRepository
	qrGateway      QRGateway
	odengi         ODengiGateway
	freedomPay     FreedomPayGateway
	events         producer.InvoiceProducer
	metrics        *metrics.PaymentMetrics
	log            *logger.Logger
	maxAmountMinor int64
}

// NewPaymentService создает сервис платежей
func NewPaymentService(
	repo repository.InvoiceRepository,
	qrGateway QRGateway,
	odengi ODengiGateway,
	freedomPay FreedomPayGateway,
	events producer.InvoiceProducer,
	m *metrics.PaymentMetrics,
	log *logger.Logger,
	maxAmountMinor int64,
) PaymentService {
	return &paymentService{
		repo:           repo,
		qrGateway:      qrGateway,
		odengi:         odengi,
		freedomPay:     freedomPay,
		events:         events,
		metrics:        m,
		log:            log,
		maxAmountMinor: maxAmountMinor,
	}
}

// CreatePayment создает инвойс и запрашивает платежный артефакт у
// выбранного шлюза. Сетевой отказ или отказ шлюза переводит инвойс
// в failed, инвойс при этом сохраняется для аудита.
func (s *paymentService) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentArtifact, error) {
	if err := req.Validate(s.maxAmountMinor); err != nil {
		return nil, err
	}

	now := time.Now()
	invoice := &domain.Invoice{
		ID:          uuid.New(),
		OrderID:     req.OrderID,
		Gateway:     req.Gateway,
		BankKey:     req.BankKey,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Status:      domain.InvoiceStatusPending,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.metrics.PaymentsCreated.WithLabelValues(string(req.Gateway)).Inc()
	s.metrics.PaymentAmount.WithLabelValues(string(req.Gateway)).Observe(float64(req.AmountMinor))
	s.publish(invoice)

	callCtx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
	defer cancel()

	result, err := s.dispatchCreate(callCtx, req)
	if err != nil {
		s.metrics.GatewayErrors.WithLabelValues(string(req.Gateway)).Inc()
		s.log.Errorw("Gateway call failed, failing invoice",
			"orderID", req.OrderID, "gateway", req.Gateway, "error", err)
		s.transition(ctx, invoice.ID, domain.InvoiceStatusFailed, nil)
		return nil, err
	}

	updated, _, err := s.repo.Transition(ctx, invoice.ID, domain.InvoiceStatusProcessing, func(inv *domain.Invoice) {
		inv.ProviderInvoiceID = result.ProviderInvoiceID
		inv.Target = result.Target
	})
	if err != nil {
		return nil, err
	}
	s.metrics.InvoiceStatus.WithLabelValues(string(req.Gateway), string(updated.Status)).Inc()
	s.publish(updated)

	artifact := &domain.PaymentArtifact{InvoiceID: updated.ID.String()}
	if req.Gateway == domain.GatewayFreedomPay {
		artifact.RedirectURL = result.Target
	} else {
		artifact.QRURL = result.Target
	}
	return artifact, nil
}

func (s *paymentService) dispatchCreate(ctx context.Context, req domain.PaymentRequest) (gateway.Result, error) {
	switch req.Gateway {
	case domain.GatewayBankQR:
		return s.qrGateway.CreatePayment(ctx, req)
	case domain.GatewayODengi:
		return s.odengi.CreateInvoice(ctx, req)
	case domain.GatewayFreedomPay:
		return s.freedomPay.InitPayment(ctx, req)
	default:
		return gateway.Result{}, domain.ErrUnsupportedGateway
	}
}

// CheckStatus возвращает актуальный статус инвойса. Для O!Dengi статус
// дополнительно сверяется опросом шлюза; остальные шлюзы обновляются
// только callback-ами.
func (s *paymentService) CheckStatus(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error) {
	invoice, err := s.repo.GetByOrderAndGateway(ctx, orderID, gw)
	if err != nil {
		return nil, err
	}
	if invoice.Status.Terminal() || gw != domain.GatewayODengi {
		return invoice, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
	defer cancel()

	status, err := s.odengi.Status(callCtx, *invoice)
	if err != nil {
		s.metrics.GatewayErrors.WithLabelValues(string(gw)).Inc()
		return nil, err
	}

	target, ok := targetStatus(status.Settlement)
	if !ok {
		return invoice, nil
	}
	return s.transition(ctx, invoice.ID, target, func(inv *domain.Invoice) {
		if status.TransID != "" {
			inv.ProviderInvoiceID = status.TransID
		}
	})
}

// targetStatus переводит нормализованный статус шлюза в целевой статус
// инвойса. Неизвестный статус никогда не трактуется как успех.
func targetStatus(settlement gateway.Settlement) (domain.InvoiceStatus, bool) {
	switch settlement {
	case gateway.SettlementPaid:
		return domain.InvoiceStatusPaid, true
	case gateway.SettlementCancelled:
		return domain.InvoiceStatusCancelled, true
	case gateway.SettlementPending:
		return "", false
	default:
		return domain.InvoiceStatusFailed, true
	}
}

// Cancel отменяет необработанный инвойс. FreedomPay не поддерживает
// отмену по API, банковский QR отменяется локально.
func (s *paymentService) Cancel(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error) {
	invoice, err := s.repo.GetByOrderAndGateway(ctx, orderID, gw)
	if err != nil {
		return nil, err
	}

	switch gw {
	case domain.GatewayODengi:
		callCtx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
		defer cancel()
		if _, err := s.odengi.Cancel(callCtx, *invoice); err != nil {
			s.metrics.GatewayErrors.WithLabelValues(string(gw)).Inc()
			return nil, err
		}
	case domain.GatewayBankQR:
		// Локальный артефакт, на стороне провайдера отменять нечего
	default:
		return nil, domain.ErrInvalidOperation
	}

	return s.transition(ctx, invoice.ID, domain.InvoiceStatusCancelled, nil)
}

// ListInvoices возвращает страницу истории инвойсов, новые первыми
func (s *paymentService) ListInvoices(ctx context.Context, filter repository.ListFilter) ([]*domain.Invoice, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Banks возвращает банки, поддерживающие QR-оплату
func (s *paymentService) Banks() []qr.Bank {
	return s.qrGateway.Banks()
}

// transition применяет переход, обновляет метрики и публикует событие
func (s *paymentService) transition(ctx context.Context, id uuid.UUID, target domain.InvoiceStatus, update func(*domain.Invoice)) (*domain.Invoice, error) {
	invoice, changed, err := s.repo.Transition(ctx, id, target, update)
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.InvoiceStatus.WithLabelValues(string(invoice.Gateway), string(invoice.Status)).Inc()
		s.publish(invoice)
	}
	return invoice, nil
}

// publish отправляет событие; сбой брокера не прерывает операцию
func (s *paymentService) publish(invoice *domain.Invoice) {
	if err := s.events.PublishStatusChange(invoice); err != nil {
		s.log.Warnw("Invoice event not published",
			"invoiceID", invoice.ID, "status", invoice.Status, "error", err)
	}
}
