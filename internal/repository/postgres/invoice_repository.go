package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/repository"
)

// invoiceRepository хранилище инвойсов в PostgreSQL. Переходы
// выполняются в транзакции с SELECT ... FOR UPDATE, так что смена
// статуса одного инвойса строго сериализована.
type invoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository создает хранилище инвойсов в PostgreSQL
func NewInvoiceRepository(db *sqlx.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create сохраняет новый инвойс
func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, order_id, gateway, bank_key, amount_minor, currency,
			status, provider_invoice_id, target, description, created_at, updated_at)
		VALUES (:id, :order_id, :gateway, :bank_key, :amount_minor, :currency,
			:status, :provider_invoice_id, :target, :description, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// GetByID возвращает инвойс по идентификатору
func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.GetContext(ctx, &invoice, `SELECT * FROM invoices WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &invoice, nil
}

// GetByOrderAndGateway возвращает инвойс по заказу и шлюзу
func (r *invoiceRepository) GetByOrderAndGateway(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.GetContext(ctx, &invoice,
		`SELECT * FROM invoices WHERE order_id = $1 AND gateway = $2 ORDER BY created_at DESC LIMIT 1`,
		orderID, gw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice by order: %w", err)
	}
	return &invoice, nil
}

// List возвращает инвойсы, новые первыми, с необязательным диапазоном
// по времени создания.
func (r *invoiceRepository) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Invoice, error) {
	query := `SELECT * FROM invoices`
	args := []any{}
	conds := []string{}

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	invoices := []*domain.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Transition переводит инвойс в целевой статус. Строка блокируется,
// статус перечитывается и переход проверяется уже под блокировкой.
func (r *invoiceRepository) Transition(ctx context.Context, id uuid.UUID, target domain.InvoiceStatus, update func(*domain.Invoice)) (*domain.Invoice, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	var invoice domain.Invoice
	err = tx.GetContext(ctx, &invoice, `SELECT * FROM invoices WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock invoice: %w", err)
	}

	changed, err := domain.ApplyTransition(invoice.Status, target)
	if err != nil {
		return nil, false, fmt.Errorf("invoice %s: %s -> %s: %w", id, invoice.Status, target, err)
	}
	if !changed {
		return &invoice, false, nil
	}

	invoice.Status = target
	invoice.UpdatedAt = time.Now()
	if update != nil {
		update(&invoice)
	}

	query := `
		UPDATE invoices
		SET status = :status, provider_invoice_id = :provider_invoice_id,
			target = :target, updated_at = :updated_at
		WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, &invoice); err != nil {
		return nil, false, fmt.Errorf("update invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transition: %w", err)
	}
	return &invoice, true, nil
}
