package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/repository"
	"github.com/mnogorolly/payment-service/internal/service"
	"github.com/mnogorolly/payment-service/pkg/logger"
	"github.com/mnogorolly/payment-service/pkg/res"
)

// PaymentHandler обрабатывает HTTP-запросы платежного API
type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

// NewPaymentHandler создает обработчик платежей
func NewPaymentHandler(svc service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, log: log}
}

// CreatePayment обрабатывает POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req domain.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{
			Error:     "invalid request body",
			ErrorCode: "bad_request",
			Details:   err.Error(),
		}, http.StatusBadRequest, h.log)
		return
	}

	artifact, err := h.service.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, artifact)
}

// GetStatus обрабатывает GET /api/v1/payments/:orderId/status
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	orderID := c.Param("orderId")
	gw := domain.Gateway(c.Query("gateway"))

	invoice, err := h.service.CheckStatus(c.Request.Context(), orderID, gw)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// CancelPayment обрабатывает POST /api/v1/payments/:orderId/cancel
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	orderID := c.Param("orderId")
	gw := domain.Gateway(c.Query("gateway"))

	invoice, err := h.service.Cancel(c.Request.Context(), orderID, gw)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ListInvoices обрабатывает GET /api/v1/invoices
func (h *PaymentHandler) ListInvoices(c *gin.Context) {
	filter := repository.ListFilter{}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	var err error
	if filter.From, err = parseTimeParam(c.Query("from")); err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{
			Error:     "invalid 'from' parameter",
			ErrorCode: "bad_request",
		}, http.StatusBadRequest, h.log)
		return
	}
	if filter.To, err = parseTimeParam(c.Query("to")); err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{
			Error:     "invalid 'to' parameter",
			ErrorCode: "bad_request",
		}, http.StatusBadRequest, h.log)
		return
	}

	invoices, err := h.service.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

// parseTimeParam принимает RFC3339 или дату без времени
func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// Banks обрабатывает GET /api/v1/banks
func (h *PaymentHandler) Banks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"banks": h.service.Banks()})
}

// respondError переводит доменную ошибку в HTTP-ответ
func (h *PaymentHandler) respondError(c *gin.Context, err error) {
	var providerErr *domain.ProviderError

	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrUnsupportedGateway),
		errors.Is(err, domain.ErrUnsupportedBank),
		errors.Is(err, domain.ErrFieldTooLong):
		status = http.StatusBadRequest
		code = "validation_failed"
	case errors.Is(err, domain.ErrInvoiceNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrAlreadyFinalized),
		errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
		code = "conflict"
	case errors.Is(err, domain.ErrInvalidOperation):
		status = http.StatusBadRequest
		code = "invalid_operation"
	case errors.Is(err, domain.ErrNetworkTimeout):
		status = http.StatusGatewayTimeout
		code = "gateway_timeout"
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
		code = "gateway_error"
	}

	res.JsonErrorResponse(c.Writer, res.ErrorResponse{
		Error:     err.Error(),
		ErrorCode: code,
	}, status, h.log)
}
