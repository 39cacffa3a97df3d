package odengi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway"
	"github.com/mnogorolly/payment-service/internal/signature"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Команды единого JSON-эндпоинта O!Dengi
const (
	cmdGetOTP        = "getOTP"
	cmdCreateInvoice = "createInvoice"
	cmdStatusPayment = "statusPayment"
	cmdInvoiceCancel = "invoiceCancel"
)

// Статусы платежа в ответах и callback-ах O!Dengi
const (
	statusPayPending   = 1
	statusPayCancelled = 2
	statusPayPaid      = 3
)

// Config конфигурация клиента O!Dengi
type Config struct {
	Endpoint  string
	SID       string
	Secret    string
	Version   int
	Lang      string
	Test      bool
	ResultURL string
}

// Client клиент единого JSON API O!Dengi. Все запросы подписываются
// HMAC-MD5 по компактному JSON без поля hash.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time
}

// NewClient создает новый клиент O!Dengi
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Version == 0 {
		cfg.Version = 1005
	}
	if cfg.Lang == "" {
		cfg.Lang = "ru"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: gateway.RequestTimeout},
		log:        log,
		now:        time.Now,
	}
}

// request конверт команды. Порядок полей фиксирован: подпись
// считается по сериализованной строке и должна совпадать байт в байт.
type request struct {
	Cmd     string `json:"cmd"`
	Version int    `json:"version"`
	SID     string `json:"sid"`
	Mktime  string `json:"mktime"`
	Lang    string `json:"lang"`
	Data    any    `json:"data"`
	Hash    string `json:"hash,omitempty"`
}

// compactJSON сериализует значение в JSON без пробелов и переносов,
// без HTML-экранирования.
func compactJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// buildSignedBody собирает конверт команды и подписывает его
func (c *Client) buildSignedBody(cmd string, data any) ([]byte, error) {
	req := request{
		Cmd:     cmd,
		Version: c.cfg.Version,
		SID:     c.cfg.SID,
		Mktime:  strconv.FormatInt(c.now().UnixMilli(), 10),
		Lang:    c.cfg.Lang,
		Data:    data,
	}

	unsigned, err := compactJSON(req)
	if err != nil {
		return nil, fmt.Errorf("odengi: marshal request: %w", err)
	}

	req.Hash = signature.SignODengi(unsigned, c.cfg.Secret)

	return compactJSON(req)
}

// call отправляет команду с повтором транспортных сбоев. Отказ уровня
// приложения (HTTP 200 со status != ok) не повторяется.
func (c *Client) call(ctx context.Context, cmd string, data any, out any) error {
	body, err := c.buildSignedBody(cmd, data)
	if err != nil {
		return err
	}

	var respBody []byte
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			// Транспортный сбой, повторяем
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("odengi: http status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("odengi: http status %d", resp.StatusCode))
		}

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(gateway.InitialBackoff)), gateway.MaxRetries),
		ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		c.log.Errorw("O!Dengi request failed", "cmd", cmd, "error", err)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("odengi: %s: %w", cmd, domain.ErrNetworkTimeout)
		}
		return fmt.Errorf("odengi: %s: %w", cmd, err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.NewProviderError(domain.GatewayODengi, "malformed_response", "cannot parse response", err)
	}

	return nil
}

// isTimeout распознает сетевые таймауты
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// createInvoiceData полезная нагрузка команды createInvoice
type createInvoiceData struct {
	OrderID   string `json:"order_id"`
	Desc      string `json:"desc"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Test      int    `json:"test"`
	LongTerm  int    `json:"long_term"`
	UserTo    string `json:"user_to,omitempty"`
	ResultURL string `json:"result_url"`
	SendPush  int    `json:"send_push"`
	SendSMS   int    `json:"send_sms"`
}

type createInvoiceResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	InvoiceID json.Number `json:"invoice_id"`
	QRURL     string      `json:"qr_url"`
	OrderID   string      `json:"order_id"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
}

// CreateInvoice создает инвойс для QR-оплаты и возвращает
// нормализованный результат.
func (c *Client) CreateInvoice(ctx context.Context, req domain.PaymentRequest) (gateway.Result, error) {
	currency, err := domain.CurrencyAlpha(req.Currency)
	if err != nil {
		return gateway.Result{}, err
	}

	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Заказ #%s", req.OrderID)
	}

	data := createInvoiceData{
		OrderID:   req.OrderID,
		Desc:      desc,
		Amount:    req.AmountMinor,
		Currency:  currency,
		Test:      boolToInt(c.cfg.Test),
		LongTerm:  0,
		ResultURL: c.cfg.ResultURL,
	}
	if phone := normalizePhone(req.PayerPhone); phone != "" {
		data.UserTo = phone
		data.SendPush = 1
		data.SendSMS = 1
	}

	var resp createInvoiceResponse
	if err := c.call(ctx, cmdCreateInvoice, data, &resp); err != nil {
		return gateway.Result{}, err
	}

	if resp.Status != "ok" {
		return gateway.Result{Success: false, ErrorCode: resp.Status},
			domain.NewProviderError(domain.GatewayODengi, resp.Status, resp.Message, nil)
	}

	c.log.Infow("O!Dengi invoice created",
		"orderID", req.OrderID, "invoiceID", resp.InvoiceID.String())

	return gateway.Result{
		Success:           true,
		ProviderInvoiceID: resp.InvoiceID.String(),
		Target:            resp.QRURL,
		RawAmount:         resp.Amount,
	}, nil
}

// statusPaymentData полезная нагрузка команды statusPayment
type statusPaymentData struct {
	InvoiceID string `json:"invoice_id"`
	OrderID   string `json:"order_id"`
	Mark      int    `json:"mark"`
}

type statusPaymentResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	StatusPay int    `json:"status_pay"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	TransID   string `json:"trans_id"`
	AccountID string `json:"account_id"`
	Fname     string `json:"fname"`
	Mobile    string `json:"mobile"`
}

// Status запрашивает статус платежа по инвойсу
func (c *Client) Status(ctx context.Context, inv domain.Invoice) (gateway.StatusResult, error) {
	data := statusPaymentData{
		InvoiceID: inv.ProviderInvoiceID,
		OrderID:   inv.OrderID,
		Mark:      0,
	}

	var resp statusPaymentResponse
	if err := c.call(ctx, cmdStatusPayment, data, &resp); err != nil {
		return gateway.StatusResult{}, err
	}

	if resp.Status != "ok" {
		return gateway.StatusResult{},
			domain.NewProviderError(domain.GatewayODengi, resp.Status, resp.Message, nil)
	}

	return gateway.StatusResult{
		Settlement: settlementFromStatusPay(resp.StatusPay),
		TransID:    resp.TransID,
		PayerName:  resp.Fname,
		PayerPhone: resp.Mobile,
		RawAmount:  resp.Amount,
	}, nil
}

// invoiceCancelData полезная нагрузка команды invoiceCancel
type invoiceCancelData struct {
	InvoiceID string `json:"invoice_id"`
}

type invoiceCancelResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Cancel отменяет инвойс
func (c *Client) Cancel(ctx context.Context, inv domain.Invoice) (gateway.Result, error) {
	var resp invoiceCancelResponse
	if err := c.call(ctx, cmdInvoiceCancel, invoiceCancelData{InvoiceID: inv.ProviderInvoiceID}, &resp); err != nil {
		return gateway.Result{}, err
	}

	if resp.Status != "ok" {
		return gateway.Result{Success: false, ErrorCode: resp.Status},
			domain.NewProviderError(domain.GatewayODengi, resp.Status, resp.Message, nil)
	}

	return gateway.Result{Success: true, ProviderInvoiceID: inv.ProviderInvoiceID}, nil
}

// getOTPData полезная нагрузка команды getOTP
type getOTPData struct {
	ReturnURL *string `json:"return_url"`
}

type getOTPResponse struct {
	Status string `json:"status"`
	Data   struct {
		OTP string `json:"otp"`
	} `json:"data"`
	Message string `json:"message"`
}

// GetOTP запрашивает одноразовый код авторизации
func (c *Client) GetOTP(ctx context.Context) (string, error) {
	var resp getOTPResponse
	if err := c.call(ctx, cmdGetOTP, getOTPData{ReturnURL: nil}, &resp); err != nil {
		return "", err
	}

	if resp.Data.OTP == "" {
		return "", domain.NewProviderError(domain.GatewayODengi, resp.Status, resp.Message, nil)
	}

	return resp.Data.OTP, nil
}

// Callback входящее уведомление O!Dengi о смене статуса платежа
type Callback struct {
	TransID   string `json:"trans_id"`
	StatusPay int    `json:"status_pay"`
	SiteID    string `json:"site_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Mktime    string `json:"mktime"`
	Test      int    `json:"test"`
	Hash      string `json:"hash"`
}

// canonicalFields возвращает поля канонической строки подписи
// callback-а в фиксированном порядке.
func (cb Callback) canonicalFields() []string {
	return []string{
		cb.TransID,
		strconv.Itoa(cb.StatusPay),
		cb.SiteID,
		cb.OrderID,
		strconv.FormatInt(cb.Amount, 10),
		cb.Currency,
		cb.Mktime,
		strconv.Itoa(cb.Test),
	}
}

// VerifyCallback проверяет подпись callback-а. До успешной проверки
// callback не должен влиять на состояние инвойса.
func (c *Client) VerifyCallback(cb Callback) bool {
	return signature.VerifyODengiCallback(cb.canonicalFields(), c.cfg.Secret, cb.Hash)
}

// Settlement возвращает нормализованный статус платежа из callback-а
func (cb Callback) Settlement() gateway.Settlement {
	return settlementFromStatusPay(cb.StatusPay)
}

// settlementFromStatusPay переводит код status_pay в нормализованный статус
func settlementFromStatusPay(statusPay int) gateway.Settlement {
	switch statusPay {
	case statusPayPending:
		return gateway.SettlementPending
	case statusPayCancelled:
		return gateway.SettlementCancelled
	case statusPayPaid:
		return gateway.SettlementPaid
	default:
		return gateway.SettlementUnknown
	}
}

// normalizePhone приводит телефон к формату 996XXXXXXXXX
func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	normalized := strings.TrimPrefix(digits.String(), "996")
	return "996" + normalized
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
