package freedompay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway"
	"github.com/mnogorolly/payment-service/internal/signature"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Config конфигурация клиента FreedomPay
type Config struct {
	InitPaymentURL string
	HealthcheckURL string
	MerchantID     string
	Secret         string
	Lifetime       int
	SuccessURL     string
	FailureURL     string
	ResultURL      string
	CheckURL       string
}

// Client клиент form-encoded API FreedomPay. Все исходящие параметры
// подписываются MD5 по отсортированным значениям.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
	salt       func() string
}

// NewClient создает новый клиент FreedomPay
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Lifetime == 0 {
		cfg.Lifetime = 3600
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: gateway.RequestTimeout},
		log:        log,
		salt:       randomSalt,
	}
}

// randomSalt генерирует случайную соль для подписи запроса
func randomSalt() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("freedompay: salt: %v", err))
	}
	return hex.EncodeToString(b)
}

// initPaymentResponse ответ на инициализацию платежа
type initPaymentResponse struct {
	PgStatus           string `json:"pg_status"`
	PgPaymentID        string `json:"pg_payment_id"`
	PgRedirectURL      string `json:"pg_redirect_url"`
	PgErrorCode        string `json:"pg_error_code"`
	PgErrorDescription string `json:"pg_error_description"`
}

// InitPayment инициализирует платеж и возвращает ссылку перенаправления
func (c *Client) InitPayment(ctx context.Context, req domain.PaymentRequest) (gateway.Result, error) {
	currency, err := domain.CurrencyAlpha(req.Currency)
	if err != nil {
		return gateway.Result{}, err
	}

	params := map[string]string{
		"pg_merchant_id": c.cfg.MerchantID,
		"pg_amount":      formatAmount(req.AmountMinor),
		"pg_order_id":    req.OrderID,
		"pg_description": req.Description,
		"pg_salt":        c.salt(),
		"pg_currency":    currency,
		"pg_lifetime":    strconv.Itoa(c.cfg.Lifetime),
		"pg_success_url": c.cfg.SuccessURL,
		"pg_failure_url": c.cfg.FailureURL,
		"pg_result_url":  c.cfg.ResultURL,
		"pg_check_url":   c.cfg.CheckURL,
	}
	params[signature.FreedomPaySignatureParam] = signature.SignFreedomPay(params, c.cfg.Secret)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	respBody, err := c.postForm(ctx, c.cfg.InitPaymentURL, form)
	if err != nil {
		return gateway.Result{}, err
	}

	var resp initPaymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return gateway.Result{}, domain.NewProviderError(domain.GatewayFreedomPay, "malformed_response", "cannot parse response", err)
	}

	if resp.PgStatus != "ok" {
		return gateway.Result{Success: false, ErrorCode: resp.PgErrorCode},
			domain.NewProviderError(domain.GatewayFreedomPay, resp.PgErrorCode, resp.PgErrorDescription, nil)
	}

	c.log.Infow("FreedomPay payment initialized",
		"orderID", req.OrderID, "paymentID", resp.PgPaymentID)

	return gateway.Result{
		Success:           true,
		ProviderInvoiceID: resp.PgPaymentID,
		Target:            resp.PgRedirectURL,
		RawAmount:         req.AmountMinor,
	}, nil
}

// Healthcheck проверяет доступность сервиса FreedomPay
func (c *Client) Healthcheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, gateway.HealthcheckTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.HealthcheckURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("freedompay: healthcheck: %w", domain.ErrNetworkTimeout)
		}
		return fmt.Errorf("freedompay: healthcheck: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewProviderError(domain.GatewayFreedomPay, strconv.Itoa(resp.StatusCode), "healthcheck failed", nil)
	}
	return nil
}

// Callback разобранное уведомление о результате платежа
type Callback struct {
	OrderID    string
	PaymentID  string
	Currency   string
	RawAmount  string
	Success    bool
	ErrorCode  string
	ErrorDescr string
}

// VerifyResult проверяет подпись входящего уведомления. Параметр
// подписи исключается из пересчета; сравнение за константное время.
func (c *Client) VerifyResult(params map[string]string) bool {
	return signature.VerifyFreedomPay(params, c.cfg.Secret)
}

// ParseResult нормализует проверенное уведомление. Вызывается только
// после успешной VerifyResult.
func ParseResult(params map[string]string) Callback {
	return Callback{
		OrderID:    params["pg_order_id"],
		PaymentID:  params["pg_payment_id"],
		Currency:   params["pg_currency"],
		RawAmount:  params["pg_amount"],
		Success:    params["pg_result"] == "1",
		ErrorCode:  params["pg_error_code"],
		ErrorDescr: params["pg_error_description"],
	}
}

// postForm отправляет form-encoded запрос с повтором транспортных сбоев
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	encoded := form.Encode()

	var respBody []byte
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("freedompay: http status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("freedompay: http status %d", resp.StatusCode))
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
		c.log.Errorw("FreedomPay request failed", "endpoint", endpoint, "error", err)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("freedompay: %w", domain.ErrNetworkTimeout)
		}
		return nil, fmt.Errorf("freedompay: %w", err)
	}

	return respBody, nil
}

// formatAmount переводит минорные единицы в строку в основных единицах
// с двумя знаками после запятой.
func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// isTimeout распознает сетевые таймауты
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
