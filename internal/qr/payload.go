package qr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Теги верхнего уровня платежной строки
const (
	tagVersion      = "00"
	tagPaymentType  = "01"
	tagServiceInfo  = "32"
	tagMCC          = "52"
	tagCurrency     = "53"
	tagAmount       = "54"
	tagMerchantName = "59"
	tagChecksum     = "63"
)

// Вложенные теги поля информации об услуге (32)
const (
	subTagDomain      = "00"
	subTagServiceCode = "01"
	subTagPayerID     = "10"
	subTagTransaction = "11"
	subTagAmountEdit  = "12"
	subTagIDEdit      = "13"
)

// Значения по умолчанию динамического QR
const (
	defaultVersion     = "01"
	defaultPaymentType = "12" // динамический QR
	allowAmountEdit    = "11"
	allowIDEdit        = "11"
)

// Config конфигурация построителя платежных ссылок
type Config struct {
	BaseURL      string
	MerchantName string
	Version      string
	PaymentType  string
	Banks        map[string]Bank
	// Now инжектируется для детерминированной сборки в тестах
	Now func() time.Time
}

// Artifact результат сборки: готовая к оплате ссылка и ее составляющие
type Artifact struct {
	URL           string
	Payload       string
	Checksum      string
	TransactionID string
	Bank          Bank
}

// Builder собирает платежную строку по шаблону банка.
// Порядок полей фиксирован и является частью проводного контракта.
type Builder struct {
	cfg Config
	log *logger.Logger
}

// NewBuilder создает новый построитель QR-ссылок
func NewBuilder(cfg Config, log *logger.Logger) *Builder {
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	if cfg.PaymentType == "" {
		cfg.PaymentType = defaultPaymentType
	}
	if cfg.Banks == nil {
		cfg.Banks = DefaultBanks()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Builder{cfg: cfg, log: log}
}

// Banks возвращает доступные банковские шаблоны
func (b *Builder) Banks() []Bank {
	banks := make([]Bank, 0, len(b.cfg.Banks))
	for _, bank := range b.cfg.Banks {
		banks = append(banks, bank)
	}
	return banks
}

// Build собирает платежную ссылку для запроса. Ошибки кодирования
// возвращаются до любого сетевого вызова.
func (b *Builder) Build(req domain.PaymentRequest) (Artifact, error) {
	bank, ok := b.cfg.Banks[req.BankKey]
	if !ok {
		return Artifact{}, fmt.Errorf("qr: bank %q: %w", req.BankKey, domain.ErrUnsupportedBank)
	}

	transactionID := fmt.Sprintf("txn_%s_%d", req.OrderID, b.cfg.Now().UnixMilli())

	serviceInfo, err := b.buildServiceInfo(req, bank, transactionID)
	if err != nil {
		return Artifact{}, err
	}

	// Сумма передается десятичной ASCII-строкой в минорных единицах
	amount := strconv.FormatInt(req.AmountMinor, 10)

	var details strings.Builder
	for _, f := range []struct{ tag, value string }{
		{tagVersion, b.cfg.Version},
		{tagPaymentType, b.cfg.PaymentType},
		{tagServiceInfo, serviceInfo},
		{tagMCC, bank.MCC},
		{tagCurrency, req.Currency},
		{tagAmount, amount},
		{tagMerchantName, b.cfg.MerchantName},
	} {
		encoded, err := EncodeField(f.tag, f.value)
		if err != nil {
			return Artifact{}, err
		}
		details.WriteString(encoded)
	}

	// Контрольная сумма считается по строке без самого поля 63
	checksum := Checksum(details.String())

	checksumField, err := EncodeField(tagChecksum, checksum)
	if err != nil {
		return Artifact{}, err
	}

	payload := details.String() + checksumField

	artifact := Artifact{
		URL:           b.cfg.BaseURL + "#" + payload,
		Payload:       payload,
		Checksum:      checksum,
		TransactionID: transactionID,
		Bank:          bank,
	}

	b.log.Debugw("QR payload built",
		"bank", bank.Key, "orderID", req.OrderID, "amountMinor", req.AmountMinor, "checksum", checksum)

	return artifact, nil
}

// buildServiceInfo собирает вложенное составное поле 32
func (b *Builder) buildServiceInfo(req domain.PaymentRequest, bank Bank, transactionID string) (string, error) {
	var info strings.Builder
	for _, f := range []struct{ tag, value string }{
		{subTagDomain, bank.Domain},
		{subTagServiceCode, bank.ServiceCode},
		{subTagPayerID, req.OrderID},
		{subTagTransaction, transactionID},
		{subTagAmountEdit, allowAmountEdit},
		{subTagIDEdit, allowIDEdit},
	} {
		encoded, err := EncodeField(f.tag, f.value)
		if err != nil {
			return "", err
		}
		info.WriteString(encoded)
	}

	// Составное поле само подчиняется лимиту длины TLV
	if len(info.String()) > maxFieldBytes {
		return "", fmt.Errorf("qr: service info is %d bytes: %w", info.Len(), domain.ErrFieldTooLong)
	}

	return info.String(), nil
}
