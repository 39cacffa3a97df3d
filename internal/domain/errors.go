package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrFieldTooLong значение TLV-поля длиннее 99 байт
	ErrFieldTooLong = errors.New("field value too long")

	// ErrUnsupportedBank банк не найден в шаблонах QR
	ErrUnsupportedBank = errors.New("unsupported bank")

	// ErrUnsupportedGateway неизвестный платежный шлюз
	ErrUnsupportedGateway = errors.New("unsupported gateway")

	// ErrUnsupportedCurrency неподдерживаемая валюта
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrInvalidAmount сумма вне допустимых границ
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNetworkTimeout транспортная ошибка после исчерпания повторов
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrInvalidSignature подпись не сошлась; фатально, не повторяется
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAlreadyFinalized попытка перехода из терминального статуса
	ErrAlreadyFinalized = errors.New("invoice already finalized")

	// ErrInvalidTransition переход отсутствует в таблице жизненного цикла
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvoiceNotFound инвойс не найден
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvalidOperation операция не поддерживается этим шлюзом
	ErrInvalidOperation = errors.New("invalid operation")
)

// ProviderError представляет отказ на уровне приложения шлюза.
// Такие ошибки не повторяются.
type ProviderError struct {
	Gateway     Gateway
	Code        string
	Message     string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ProviderError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s provider error [%s]: %s: %v", e.Gateway, e.Code, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s provider error [%s]: %s", e.Gateway, e.Code, e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// NewProviderError создает новую ошибку шлюза
func NewProviderError(gateway Gateway, code, message string, err error) *ProviderError {
	return &ProviderError{
		Gateway:     gateway,
		Code:        code,
		Message:     message,
		OriginalErr: err,
	}
}
