package bankqr

import (
	"context"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway"
	"github.com/mnogorolly/payment-service/internal/qr"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Client локальный QR-шлюз. Платежный артефакт строится без сетевых
// вызовов, поэтому у него нет операций статуса и отмены.
type Client struct {
	builder *qr.Builder
	log     *logger.Logger
}

// NewClient создает локальный QR-шлюз
func NewClient(builder *qr.Builder, log *logger.Logger) *Client {
	return &Client{builder: builder, log: log}
}

// CreatePayment строит QR-артефакт для запроса платежа
func (c *Client) CreatePayment(_ context.Context, req domain.PaymentRequest) (gateway.Result, error) {
	artifact, err := c.builder.Build(req)
	if err != nil {
		return gateway.Result{}, err
	}

	c.log.Infow("QR artifact built",
		"orderID", req.OrderID, "bank", artifact.Bank, "checksum", artifact.Checksum)

	return gateway.Result{
		Success:           true,
		ProviderInvoiceID: artifact.TransactionID,
		Target:            artifact.URL,
		RawAmount:         req.AmountMinor,
	}, nil
}

// Banks возвращает поддерживаемые банки
func (c *Client) Banks() []qr.Bank {
	return c.builder.Banks()
}
