package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics метрики платежного контура
type PaymentMetrics struct {
	Registry *prometheus.Registry

	PaymentsCreated   *prometheus.CounterVec
	InvoiceStatus     *prometheus.CounterVec
	SignatureFailures *prometheus.CounterVec
	GatewayErrors     *prometheus.CounterVec
	PaymentAmount     *prometheus.HistogramVec
}

// NewPaymentMetrics регистрирует метрики в собственном реестре
func NewPaymentMetrics() *PaymentMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PaymentMetrics{
		Registry: registry,
		PaymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Created payment attempts by gateway",
		}, []string{"gateway"}),
		InvoiceStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_status_transitions_total",
			Help: "Invoice status transitions by gateway and target status",
		}, []string{"gateway", "status"}),
		SignatureFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_failures_total",
			Help: "Rejected payloads with invalid signatures by source",
		}, []string{"source"}),
		GatewayErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Failed gateway calls by gateway",
		}, []string{"gateway"}),
		PaymentAmount: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_amount_minor",
			Help:    "Payment amounts in minor units",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
		}, []string{"gateway"}),
	}
}
