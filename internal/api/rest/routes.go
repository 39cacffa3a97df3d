package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnogorolly/payment-service/internal/api/rest/handlers"
	"github.com/mnogorolly/payment-service/internal/api/rest/middleware"
	"github.com/mnogorolly/payment-service/internal/metrics"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// RouterDeps зависимости маршрутов
type RouterDeps struct {
	Payments *handlers.PaymentHandler
	Webhooks *handlers.WebhookHandler
	Health   *handlers.HealthHandler
	Metrics  *metrics.PaymentMetrics
	Log      *logger.Logger
}

// NewRouter собирает маршруты HTTP API
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Log))

	api := router.Group("/api/v1")
	{
		api.POST("/payments", deps.Payments.CreatePayment)
		api.GET("/payments/:orderId/status", deps.Payments.GetStatus)
		api.POST("/payments/:orderId/cancel", deps.Payments.CancelPayment)
		api.GET("/invoices", deps.Payments.ListInvoices)
		api.GET("/banks", deps.Payments.Banks)
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/odengi", deps.Webhooks.ODengi)
		webhooks.POST("/freedompay", deps.Webhooks.FreedomPay)
	}

	router.GET("/health", deps.Health.Health)
	router.GET("/health/freedompay", deps.Health.FreedomPayHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		deps.Metrics.Registry, promhttp.HandlerOpts{})))

	return router
}
