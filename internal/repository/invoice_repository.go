package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnogorolly/payment-service/internal/domain"
)

// ListFilter параметры выборки истории инвойсов. Нулевые границы
// времени означают отсутствие соответствующего ограничения.
type ListFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// InvoiceRepository хранилище инвойсов. Transition применяет смену
// статуса атомарно относительно других переходов того же инвойса.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetByOrderAndGateway(ctx context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Invoice, error)
	Transition(ctx context.Context, id uuid.UUID, target domain.InvoiceStatus, update func(*domain.Invoice)) (*domain.Invoice, bool, error)
}

// memoryInvoiceRepository потокобезопасное хранилище в памяти.
// Переходы сериализуются замком на уровне инвойса, чтобы два
// конкурентных webhook-а не могли оба перевести инвойс в терминал.
type memoryInvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]*domain.Invoice
	byOrder  map[string]uuid.UUID
	locks    map[uuid.UUID]*sync.Mutex
	ordered  []uuid.UUID
}

// NewMemoryInvoiceRepository создает хранилище инвойсов в памяти
func NewMemoryInvoiceRepository() InvoiceRepository {
	return &memoryInvoiceRepository{
		invoices: make(map[uuid.UUID]*domain.Invoice),
		byOrder:  make(map[string]uuid.UUID),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func orderKey(orderID string, gw domain.Gateway) string {
	return orderID + "|" + string(gw)
}

// Create сохраняет новый инвойс
func (r *memoryInvoiceRepository) Create(_ context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *invoice
	r.invoices[invoice.ID] = &cp
	r.byOrder[orderKey(invoice.OrderID, invoice.Gateway)] = invoice.ID
	r.locks[invoice.ID] = &sync.Mutex{}
	r.ordered = append(r.ordered, invoice.ID)
	return nil
}

// GetByID возвращает инвойс по идентификатору
func (r *memoryInvoiceRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	cp := *invoice
	return &cp, nil
}

// GetByOrderAndGateway возвращает инвойс по заказу и шлюзу
func (r *memoryInvoiceRepository) GetByOrderAndGateway(_ context.Context, orderID string, gw domain.Gateway) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderKey(orderID, gw)]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	cp := *r.invoices[id]
	return &cp, nil
}

// List возвращает инвойсы в порядке создания, новые первыми
func (r *memoryInvoiceRepository) List(_ context.Context, filter ListFilter) ([]*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Invoice, 0, filter.Limit)
	skipped := 0
	for i := len(r.ordered) - 1; i >= 0; i-- {
		invoice := r.invoices[r.ordered[i]]
		if !filter.From.IsZero() && invoice.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && invoice.CreatedAt.After(filter.To) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
		cp := *invoice
		result = append(result, &cp)
	}
	return result, nil
}

// Transition переводит инвойс в целевой статус. Текущий статус
// перечитывается под замком, поэтому повторный терминальный переход
// превращается в no-op, а конфликтующий отклоняется.
func (r *memoryInvoiceRepository) Transition(_ context.Context, id uuid.UUID, target domain.InvoiceStatus, update func(*domain.Invoice)) (*domain.Invoice, bool, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false, domain.ErrInvoiceNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return nil, false, domain.ErrInvoiceNotFound
	}

	changed, err := domain.ApplyTransition(invoice.Status, target)
	if err != nil {
		return nil, false, fmt.Errorf("invoice %s: %s -> %s: %w", id, invoice.Status, target, err)
	}
	if !changed {
		cp := *invoice
		return &cp, false, nil
	}

	invoice.Status = target
	invoice.UpdatedAt = time.Now()
	if update != nil {
		update(invoice)
	}

	cp := *invoice
	return &cp, true, nil
}
