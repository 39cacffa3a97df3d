package producer

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/internal/kafka"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// InvoiceEvent событие смены статуса инвойса для заинтересованных
// сервисов (заказы, уведомления).
type InvoiceEvent struct {
	InvoiceID   string    `json:"invoice_id"`
	OrderID     string    `json:"order_id"`
	Gateway     string    `json:"gateway"`
	Status      string    `json:"status"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// InvoiceProducer публикует события жизненного цикла инвойса
type InvoiceProducer interface {
	PublishStatusChange(invoice *domain.Invoice) error
}

// invoiceProducer продюсер на базе sarama, ключ сообщения - заказ,
// чтобы события одного заказа шли в одну партицию по порядку.
type invoiceProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewInvoiceProducer создает продюсер событий инвойса
func NewInvoiceProducer(p sarama.SyncProducer, log *logger.Logger) InvoiceProducer {
	return &invoiceProducer{producer: p, log: log}
}

// topicFor выбирает топик по статусу инвойса
func topicFor(status domain.InvoiceStatus) string {
	switch status {
	case domain.InvoiceStatusPaid:
		return kafka.TopicInvoicePaid
	case domain.InvoiceStatusCancelled:
		return kafka.TopicInvoiceCancelled
	case domain.InvoiceStatusFailed:
		return kafka.TopicInvoiceFailed
	default:
		return kafka.TopicInvoiceCreated
	}
}

// PublishStatusChange публикует событие смены статуса
func (p *invoiceProducer) PublishStatusChange(invoice *domain.Invoice) error {
	event := InvoiceEvent{
		InvoiceID:   invoice.ID.String(),
		OrderID:     invoice.OrderID,
		Gateway:     string(invoice.Gateway),
		Status:      string(invoice.Status),
		AmountMinor: invoice.AmountMinor,
		Currency:    invoice.Currency,
		OccurredAt:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topicFor(invoice.Status),
		Key:   sarama.StringEncoder(invoice.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Errorw("Failed to publish invoice event",
			"orderID", invoice.OrderID, "status", invoice.Status, "error", err)
		return err
	}

	p.log.Debugw("Invoice event published",
		"topic", msg.Topic, "partition", partition, "offset", offset)
	return nil
}

// noopProducer заглушка для окружений без Kafka
type noopProducer struct{}

// NewNoopProducer создает продюсер, который молча отбрасывает события
func NewNoopProducer() InvoiceProducer {
	return noopProducer{}
}

func (noopProducer) PublishStatusChange(*domain.Invoice) error { return nil }
