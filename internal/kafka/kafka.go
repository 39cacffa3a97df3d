package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Топики событий жизненного цикла инвойса
const (
	TopicInvoiceCreated   = "invoice.created"
	TopicInvoicePaid      = "invoice.paid"
	TopicInvoiceCancelled = "invoice.cancelled"
	TopicInvoiceFailed    = "invoice.failed"
)

// NewSyncProducer создает синхронный Kafka-продюсер с подтверждением
// записи всеми репликами.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}
