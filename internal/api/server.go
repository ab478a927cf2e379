package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"land-grab/internal/config"
	"land-grab/internal/room"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the websocket hub feeding the registry.
type Server struct {
	registry    *room.Registry
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer wires the router and websocket hub around a registry.
//
// No listener is opened until Start is called, so tests can use Router()
// with httptest instead.
func NewServer(cfg config.AppConfig, registry *room.Registry) *Server {
	s := &Server{
		registry: registry,
		wsHub:    NewWebSocketHub(registry, WSConfigFromConfig(cfg)),
		rateLimiter: NewIPRateLimiter(RateLimitConfig{
			RequestsPerSecond: cfg.Server.RequestsPerSec,
			Burst:             cfg.Server.RequestBurst,
			CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
		}),
	}

	s.router = NewRouter(RouterConfig{
		Rooms:       registry,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.Server.AllowedOrigins,
		Connections: s.wsHub.ClientCount,
	})

	// the websocket route needs the hub, so it can't be part of NewRouter
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start listens on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎮 WebSocket endpoint: ws://localhost%s/ws", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes every websocket and stops
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wsHub.CloseAll()
	s.rateLimiter.Stop()
	return err
}
