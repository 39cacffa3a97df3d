package qr

import (
	"fmt"

	"github.com/mnogorolly/payment-service/internal/domain"
)

// Максимальная байтовая длина значения TLV-поля: префикс длины двухзначный
const maxFieldBytes = 99

// EncodeField кодирует пару тег/значение в проводной формат:
// тег (2 цифры) + длина (2 цифры с ведущим нулем) + значение.
// Длина считается в байтах UTF-8, а не в символах. Экранирование
// не выполняется: значения с разделителями формата должны быть
// очищены вызывающей стороной.
func EncodeField(tag, value string) (string, error) {
	if len(tag) != 2 || tag[0] < '0' || tag[0] > '9' || tag[1] < '0' || tag[1] > '9' {
		return "", fmt.Errorf("qr: tag must be exactly two ASCII digits, got %q", tag)
	}

	n := len(value)
	if n > maxFieldBytes {
		return "", fmt.Errorf("qr: tag %s value is %d bytes: %w", tag, n, domain.ErrFieldTooLong)
	}

	return fmt.Sprintf("%s%02d%s", tag, n, value), nil
}
