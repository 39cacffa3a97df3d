package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/mnogorolly/payment-service/pkg/logger"
)

// Server HTTP-сервер платежного API
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer создает HTTP-сервер с таймаутами из конфигурации
func NewServer(port string, handler http.Handler, readTimeout, writeTimeout time.Duration, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		log: log,
	}
}

// Run запускает сервер и блокируется до остановки
func (s *Server) Run() error {
	s.log.Infow("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
