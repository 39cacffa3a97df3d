package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnogorolly/payment-service/internal/domain"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

// ErrCacheMiss ключ отсутствует в кэше
var ErrCacheMiss = errors.New("cache miss")

// InvoiceCache кэш инвойсов поверх хранилища
type InvoiceCache interface {
	Get(ctx context.Context, key string) (*domain.Invoice, error)
	Set(ctx context.Context, key string, invoice *domain.Invoice, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// redisInvoiceCache кэш инвойсов в Redis, значения сериализуются в JSON
type redisInvoiceCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisInvoiceCache создает Redis-кэш инвойсов
func NewRedisInvoiceCache(client *redis.Client, log *logger.Logger) InvoiceCache {
	return &redisInvoiceCache{client: client, log: log}
}

// Get возвращает инвойс из кэша
func (c *redisInvoiceCache) Get(ctx context.Context, key string) (*domain.Invoice, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var invoice domain.Invoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		c.log.Warnw("Corrupted cache entry, dropping", "key", key, "error", err)
		c.client.Del(ctx, key)
		return nil, ErrCacheMiss
	}
	return &invoice, nil
}

// Set сохраняет инвойс в кэш
func (c *redisInvoiceCache) Set(ctx context.Context, key string, invoice *domain.Invoice, ttl time.Duration) error {
	data, err := json.Marshal(invoice)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete удаляет ключи из кэша
func (c *redisInvoiceCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
