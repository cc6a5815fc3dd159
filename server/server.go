// Package server wires the relay together: router, middleware stack, and
// the HTTP server lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qiwen/wxrelay/config"
	"github.com/qiwen/wxrelay/server/completion"
	"github.com/qiwen/wxrelay/server/handlers"
	"github.com/qiwen/wxrelay/server/metrics"
	"github.com/qiwen/wxrelay/server/middleware"
	"github.com/qiwen/wxrelay/server/signature"
	"go.uber.org/zap"
)

// Router handles HTTP routing for the relay's four endpoints.
type Router struct {
	router chi.Router
}

// NewRouter creates a new router with the full middleware stack and routes.
// The completer is injected so tests can substitute the completion client.
func NewRouter(cfg *config.Config, completer handlers.Completer, logger *zap.Logger, m *metrics.Metrics) *Router {
	r := chi.NewRouter()

	// Middleware stack; order matters: the request ID must exist before
	// logging and recovery reference it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(m))

	verifier := signature.NewVerifier(cfg.Webhook.Secret)
	callback := handlers.NewCallbackHandler(
		verifier,
		cfg.Webhook.SignatureHeader,
		completer,
		cfg.Limits,
		logger,
		m,
	)

	r.Get("/", handlers.NewIndexHandler().ServeHTTP)
	r.Get("/healthz", handlers.NewHealthHandler().ServeHTTP)
	r.Post("/wechat/callback", callback.ServeHTTP)
	r.Handle("/metrics", m.Handler())

	return &Router{router: r}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// New builds a fully wired server from configuration: completion client,
// metrics, router, HTTP server.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	completer := completion.NewClient(cfg.Completion, logger)
	m := metrics.NewMetrics()
	router := NewRouter(cfg, completer, logger, m)
	return NewServer(cfg.Server, router, logger)
}

// NewServer creates a new server instance with the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Start starts the server and blocks until ctx is cancelled or the server
// fails. Cancellation triggers a graceful shutdown bounded by the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
