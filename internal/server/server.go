// Пакет server — служебный HTTP-сервер наблюдаемости (/metrics, /healthz)
// с graceful shutdown.
//
// Сервер живёт параллельно основному пайплайну: запускается фоном до
// начала обхода закладок и гасится по завершении прогона.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server — служебный HTTP-сервер.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	errCh      chan error
}

// New создаёт сервер на указанном порту.
func New(port int, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
		errCh:  make(chan error, 1),
	}
}

// Start запускает сервер фоном. Ошибка запуска доступна через Err.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Служебный HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.errCh <- err
		}
		close(s.errCh)
	}()
}

// Err — канал фатальной ошибки сервера.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown выполняет graceful shutdown с таймаутом 30 секунд.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}
	s.logger.Info("Служебный HTTP-сервер остановлен")
	return nil
}
