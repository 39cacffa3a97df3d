package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Время жизни кэшированного инвойса. Короткое, статус меняется часто.
const invoiceCacheTTL = 2 * time.Minute

// cachedInvoiceRepository декоратор хранилища с кэшем чтений.
// Переходы пишутся сквозь кэш и обновляют его новым состоянием.
type cachedInvoiceRepository struct {
	inner InvoiceRepository
	cache InvoiceCache
	log   *logger.Logger
}

// NewCachedInvoiceRepository оборачивает хранилище кэшем
func NewCachedInvoiceRepository(inner InvoiceRepository, cache InvoiceCache, log *logger.Logger) InvoiceRepository {
	return &cachedInvoiceRepository{inner: inner, cache: cache, log: log}
}

func invoiceKey(id uuid.UUID) string {
	return fmt.Sprintf("invoice:%s", id)
}

func invoiceOrderKey(orderID string, gw domain.Gateway) string {
	return fmt.Sprintf("invoice:order:%s:%s", orderID, gw)
}

// Create сохраняет инвойс и прогревает кэш
func (r *cachedInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := r.inner.Create(ctx, invoice); err != nil {
		return err
	}
	r.store(ctx, invoice)
	return nil
}

// GetByID возвращает инвойс, предпочитая кэш
func (r *cachedInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	if invoice, err := r.cache.Get(ctx, invoiceKey(id)); err == nil {
		return invoice, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		r.log.Warnw("Invoice cache read failed", "invoiceID", id, "error", err)
	}

	invoice, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, invoice)
	return invoice, nil
}

// GetByOrderAndGateway возвращает инвойс по заказу, предпочитая кэш
func (r *cachedInvoiceRepository) GetByOrderAndGateway(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error) {
	if invoice, err := r.cache.Get(ctx, invoiceOrderKey(orderID, gw)); err == nil {
		return invoice, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		r.log.Warnw("Invoice cache read failed", "orderID", orderID, "error", err)
	}

	invoice, err := r.inner.GetByOrderAndGateway(ctx, orderID, gw)
	if err != nil {
		return nil, err
	}
	r.store(ctx, invoice)
	return invoice, nil
}

// List всегда читает из хранилища
func (r *cachedInvoiceRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Invoice, error) {
	return r.inner.List(ctx, filter)
}

// Transition применяет переход в хранилище и обновляет кэш результатом
func (r *cachedInvoiceRepository) Transition(ctx context.Context, id uuid.UUID, target domain.InvoiceStatus, update func(*domain.Invoice)) (*domain.Invoice, bool, error) {
	invoice, changed, err := r.inner.Transition(ctx, id, target, update)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, invoice)
	return invoice, changed, nil
}

// store кладет инвойс в кэш под обоими ключами; ошибки кэша не
// мешают основной операции.
func (r *cachedInvoiceRepository) store(ctx context.Context, invoice *domain.Invoice) {
	if err := r.cache.Set(ctx, invoiceKey(invoice.ID), invoice, invoiceCacheTTL); err != nil {
		r.log.Warnw("Invoice cache write failed", "invoiceID", invoice.ID, "error", err)
		return
	}
	if err := r.cache.Set(ctx, invoiceOrderKey(invoice.OrderID, invoice.Gateway), invoice, invoiceCacheTTL); err != nil {
		r.log.Warnw("Invoice cache write failed", "orderID", invoice.OrderID, "error", err)
	}
}
