package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnogorolly/payment-service/internal/service"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// HealthHandler проверки живости сервиса и доступности шлюзов
type HealthHandler struct {
	freedomPay service.FreedomPayGateway
	log        *logger.Logger
}

// NewHealthHandler создает обработчик health-проверок
func NewHealthHandler(freedomPay service.FreedomPayGateway, log *logger.Logger) *HealthHandler {
	return &HealthHandler{freedomPay: freedomPay, log: log}
}

// Health обрабатывает GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// FreedomPayHealth обрабатывает GET /health/freedompay
func (h *HealthHandler) FreedomPayHealth(c *gin.Context) {
	if err := h.freedomPay.Healthcheck(c.Request.Context()); err != nil {
		h.log.Warnw("FreedomPay healthcheck failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
