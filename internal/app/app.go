package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnogorolly/payment-service/config"
	"github.com/mnogorolly/payment-service/internal/api/rest"
	"github.com/mnogorolly/payment-service/internal/api/rest/handlers"
	"github.com/mnogorolly/payment-service/internal/db"
	"github.com/mnogorolly/payment-service/internal/gateway/bankqr"
	"github.com/mnogorolly/payment-service/internal/gateway/freedompay"
	"github.com/mnogorolly/payment-service/internal/gateway/odengi"
	"github.com/mnogorolly/payment-service/internal/kafka"
	"github.com/mnogorolly/payment-service/internal/kafka/producer"
	"github.com/mnogorolly/payment-service/internal/metrics"
	"github.com/mnogorolly/payment-service/internal/qr"
	"github.com/mnogorolly/payment-service/internal/repository"
	"github.com/mnogorolly/payment-service/internal/repository/postgres"
	"github.com/mnogorolly/payment-service/internal/service"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Run собирает зависимости и запускает сервис до сигнала остановки
func Run(cfg *config.Config, log *logger.Logger) error {
	repo, err := buildRepository(cfg, log)
	if err != nil {
		return err
	}

	events := buildProducer(cfg, log)
	m := metrics.NewPaymentMetrics()

	qrBuilder := qr.NewBuilder(qr.Config{
		BaseURL:      cfg.QR.BaseURL,
		MerchantName: cfg.QR.MerchantName,
		Version:      cfg.QR.Version,
		PaymentType:  cfg.QR.PaymentType,
		Banks:        buildBanks(cfg.QR.Banks),
	}, log)

	qrGateway := bankqr.NewClient(qrBuilder, log)
	odengiClient := odengi.NewClient(odengi.Config{
		Endpoint:  cfg.ODengi.Endpoint,
		SID:       cfg.ODengi.SID,
		Secret:    cfg.ODengi.Secret,
		Version:   cfg.ODengi.Version,
		Lang:      cfg.ODengi.Lang,
		Test:      cfg.ODengi.Test,
		ResultURL: cfg.ODengi.ResultURL,
	}, log)
	freedomPayClient := freedompay.NewClient(freedompay.Config{
		InitPaymentURL: cfg.FreedomPay.InitPaymentURL,
		HealthcheckURL: cfg.FreedomPay.HealthcheckURL,
		MerchantID:     cfg.FreedomPay.MerchantID,
		Secret:         cfg.FreedomPay.Secret,
		Lifetime:       cfg.FreedomPay.Lifetime,
		SuccessURL:     cfg.FreedomPay.SuccessURL,
		FailureURL:     cfg.FreedomPay.FailureURL,
		ResultURL:      cfg.FreedomPay.ResultURL,
		CheckURL:       cfg.FreedomPay.CheckURL,
	}, log)

	paymentSvc := service.NewPaymentService(repo, qrGateway, odengiClient, freedomPayClient,
		events, m, log, cfg.Payments.MaxAmountMinor)
	webhookSvc := service.NewWebhookService(repo, odengiClient, freedomPayClient, events, m, log)

	router := rest.NewRouter(rest.RouterDeps{
		Payments: handlers.NewPaymentHandler(paymentSvc, log),
		Webhooks: handlers.NewWebhookHandler(webhookSvc, log),
		Health:   handlers.NewHealthHandler(freedomPayClient, log),
		Metrics:  m,
		Log:      log,
	})

	server := rest.NewServer(cfg.App.Port, router,
		time.Duration(cfg.Server.ReadTimeout)*time.Second,
		time.Duration(cfg.Server.WriteTimeout)*time.Second,
		log)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infow("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

// buildRepository выбирает хранилище: PostgreSQL при заданном DSN,
// иначе память. Redis, если настроен, оборачивает хранилище кэшем.
func buildRepository(cfg *config.Config, log *logger.Logger) (repository.InvoiceRepository, error) {
	var repo repository.InvoiceRepository
	if cfg.Database.DSN != "" {
		database, err := db.NewPostgresDB(cfg.Database.DSN, log)
		if err != nil {
			return nil, err
		}
		repo = postgres.NewInvoiceRepository(database)
	} else {
		log.Warn("Database DSN is empty, using in-memory invoice store")
		repo = repository.NewMemoryInvoiceRepository()
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := repository.NewRedisInvoiceCache(client, log)
		repo = repository.NewCachedInvoiceRepository(repo, cache, log)
		log.Info("Invoice cache enabled")
	}

	return repo, nil
}

// buildProducer подключает Kafka или заглушку, если брокеры не заданы
func buildProducer(cfg *config.Config, log *logger.Logger) producer.InvoiceProducer {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("Kafka brokers are not configured, invoice events disabled")
		return producer.NewNoopProducer()
	}

	syncProducer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Errorw("Kafka unavailable, invoice events disabled", "error", err)
		return producer.NewNoopProducer()
	}
	return producer.NewInvoiceProducer(syncProducer, log)
}

// buildBanks переводит банки из конфигурации в шаблоны построителя QR
func buildBanks(banks map[string]config.BankConfig) map[string]qr.Bank {
	if len(banks) == 0 {
		return nil
	}
	result := make(map[string]qr.Bank, len(banks))
	for key, b := range banks {
		result[key] = qr.Bank{
			Key:         key,
			Name:        b.Name,
			Domain:      b.Domain,
			ServiceCode: b.ServiceCode,
			MCC:         b.MCC,
		}
	}
	return result
}
