package gateway

import "time"

// Таймауты и политика повторов внешних вызовов. Повторяются только
// транспортные сбои; отказ уровня приложения не повторяется никогда.
const (
	RequestTimeout     = 30 * time.Second
	HealthcheckTimeout = 10 * time.Second
	MaxRetries         = 3
	InitialBackoff     = 500 * time.Millisecond
)

// Result нормализованный результат обращения к шлюзу
type Result struct {
	Success           bool   `json:"success"`
	ProviderInvoiceID string `json:"provider_invoice_id,omitempty"`
	Target            string `json:"target,omitempty"` // redirect- или QR-ссылка
	RawAmount         int64  `json:"raw_amount,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
}

// Settlement нормализованный итог проверки статуса платежа
type Settlement int

const (
	SettlementUnknown Settlement = iota
	SettlementPending
	SettlementCancelled
	SettlementPaid
)

// String реализует fmt.Stringer
func (s Settlement) String() string {
	switch s {
	case SettlementPending:
		return "pending"
	case SettlementCancelled:
		return "cancelled"
	case SettlementPaid:
		return "paid"
	default:
		return "unknown"
	}
}

// StatusResult нормализованный ответ на запрос статуса платежа
type StatusResult struct {
	Settlement Settlement
	TransID    string
	PayerName  string
	PayerPhone string
	RawAmount  int64
}
