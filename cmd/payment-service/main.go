package main

import (
	"github.com/mnogorolly/payment-service/config"
	"github.com/mnogorolly/payment-service/internal/app"
	"github.com/mnogorolly/payment-service/pkg/logger"
)

func main() {
	log := logger.New(logger.INFO)

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	log.Infow("Starting payment service", "env", cfg.App.Env, "port", cfg.App.Port)

	if err := app.Run(cfg, log); err != nil {
		log.Fatal("Service stopped with error: %v", err)
	}

	log.Info("Service stopped")
}
