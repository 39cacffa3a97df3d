package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/gateway/odengi"
	"github.com/mnogorolly/payment-service/internal/service"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Предел размера тела уведомления
const maxWebhookBody = 1 << 20

// WebhookHandler принимает уведомления платежных шлюзов
type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

// NewWebhookHandler создает обработчик уведомлений
func NewWebhookHandler(svc service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: svc, log: log}
}

// ODengi обрабатывает POST /webhooks/odengi
func (h *WebhookHandler) ODengi(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	var cb odengi.Callback
	if err := json.NewDecoder(c.Request.Body).Decode(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid payload"})
		return
	}

	if err := h.service.HandleODengiCallback(c.Request.Context(), cb); err != nil {
		h.respondCallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// FreedomPay обрабатывает POST /webhooks/freedompay
func (h *WebhookHandler) FreedomPay(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	params := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if err := h.service.HandleFreedomPayCallback(c.Request.Context(), params); err != nil {
		h.respondCallbackError(c, err)
		return
	}

	c.String(http.StatusOK, "ok")
}

// respondCallbackError переводит ошибку обработки уведомления в HTTP-ответ.
// Повтор терминального статуса не ошибка и сюда не попадает.
func (h *WebhookHandler) respondCallbackError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid signature"})
	case errors.Is(err, domain.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "invoice not found"})
	case errors.Is(err, domain.ErrAlreadyFinalized), errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "conflicting status"})
	default:
		h.log.Errorw("Callback processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
	}
}
