package domain

// Gateway платежное направление
type Gateway string

const (
	// GatewayBankQR локальный банковский QR (без сетевого вызова)
	GatewayBankQR Gateway = "bank_qr"

	// GatewayODengi кошелек O!Dengi (JSON API)
	GatewayODengi Gateway = "odengi"

	// GatewayFreedomPay интернет-эквайринг FreedomPay (form API)
	GatewayFreedomPay Gateway = "freedompay"
)

// PaymentRequest представляет запрос на создание платежа от чекаута
type PaymentRequest struct {
	OrderID     string  `json:"order_id" binding:"required"`
	AmountMinor int64   `json:"amount_minor" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required,len=3,numeric"`
	Gateway     Gateway `json:"gateway" binding:"required"`
	BankKey     string  `json:"bank_key,omitempty"`
	Description string  `json:"description,omitempty" binding:"max=255"`
	PayerPhone  string  `json:"payer_phone,omitempty"`
}

// Validate проверяет инварианты запроса до любого сетевого вызова
func (r PaymentRequest) Validate(maxAmountMinor int64) error {
	if r.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if maxAmountMinor > 0 && r.AmountMinor > maxAmountMinor {
		return ErrInvalidAmount
	}
	if len(r.Currency) != 3 {
		return ErrUnsupportedCurrency
	}
	switch r.Gateway {
	case GatewayBankQR, GatewayODengi, GatewayFreedomPay:
	default:
		return ErrUnsupportedGateway
	}
	return nil
}

// PaymentArtifact то, что возвращается чекауту после принятия запроса
type PaymentArtifact struct {
	InvoiceID   string `json:"invoice_id"`
	QRURL       string `json:"qr_url,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Числовые коды валют ISO-4217, принимаемые в платежных запросах.
// Шлюзы работают с буквенными кодами, а QR-поле 53 с числовыми.
var currencyAlpha = map[string]string{
	"417": "KGS",
	"398": "KZT",
	"643": "RUB",
	"840": "USD",
}

// CurrencyAlpha возвращает буквенный код валюты по числовому
func CurrencyAlpha(numeric string) (string, error) {
	alpha, ok := currencyAlpha[numeric]
	if !ok {
		return "", ErrUnsupportedCurrency
	}
	return alpha, nil
}
