package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus статус инвойса
type InvoiceStatus string

const (
	InvoiceStatusPending    InvoiceStatus = "pending"
	InvoiceStatusProcessing InvoiceStatus = "processing"
	InvoiceStatusPaid       InvoiceStatus = "paid"
	InvoiceStatusCancelled  InvoiceStatus = "cancelled"
	InvoiceStatusFailed     InvoiceStatus = "failed"
)

// Terminal сообщает, является ли статус конечным
func (s InvoiceStatus) Terminal() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusFailed:
		return true
	}
	return false
}

// Таблица переходов жизненного цикла инвойса. Обратные переходы
// не допускаются ни при каких условиях.
var allowedTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:    {InvoiceStatusProcessing, InvoiceStatusFailed},
	InvoiceStatusProcessing: {InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusFailed},
}

// ApplyTransition проверяет переход current -> target.
// Возвращает changed=false без ошибки, если target совпадает с уже
// достигнутым терминальным статусом (идемпотентный повтор).
func ApplyTransition(current, target InvoiceStatus) (bool, error) {
	if current.Terminal() {
		if current == target {
			return false, nil
		}
		return false, ErrAlreadyFinalized
	}

	for _, next := range allowedTransitions[current] {
		if next == target {
			return true, nil
		}
	}

	return false, ErrInvalidTransition
}

// Invoice представляет отслеживаемую попытку оплаты одного заказа
// через один шлюз. Запись никогда не удаляется физически, она только
// достигает терминального статуса.
type Invoice struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	OrderID           string        `json:"order_id" db:"order_id"`
	Gateway           Gateway       `json:"gateway" db:"gateway"`
	BankKey           string        `json:"bank_key,omitempty" db:"bank_key"`
	AmountMinor       int64         `json:"amount_minor" db:"amount_minor"`
	Currency          string        `json:"currency" db:"currency"`
	Status            InvoiceStatus `json:"status" db:"status"`
	ProviderInvoiceID string        `json:"provider_invoice_id,omitempty" db:"provider_invoice_id"`
	Target            string        `json:"target,omitempty" db:"target"`
	Description       string        `json:"description,omitempty" db:"description"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}
