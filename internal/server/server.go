// Package server constructs and starts the roomchat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/relay"
	"github.com/gorilla/websocket"
)

// Server binds the relay hub to the WebSocket transport and the HTTP
// endpoints around it.
type Server struct {
	cfg      Config
	hub      *relay.Hub
	metrics  *relay.Metrics
	log      *slog.Logger
	origins  *originPolicy
	upgrader websocket.Upgrader
	clients  sync.WaitGroup
}

// New creates a Server for hub. metrics may be nil, in which case /metrics
// is not mounted.
func New(cfg Config, hub *relay.Hub, metrics *relay.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Sanitize()
	origins := newOriginPolicy(cfg.AllowedOrigins, logger)

	return &Server{
		cfg:     cfg,
		hub:     hub,
		metrics: metrics,
		log:     logger,
		origins: origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	return s.cfg
}

// WaitForClients blocks until every client pump goroutine has exited or ctx
// is done.
func (s *Server) WaitForClients(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.clients.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("timed out waiting for client goroutines")
		return ctx.Err()
	}
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns http.ErrServerClosed after a graceful shutdown.
func StartServer(logger *slog.Logger, server *http.Server) error {
	logger.Info("server listening", "addr", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until ctx expires.
func ShutdownServer(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	logger.Info("shutting down http server")

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "err", err)
		return err
	}

	logger.Info("http server shutdown completed")
	return nil
}
