package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"frameclash/internal/arena"
	"frameclash/internal/config"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for real-time updates.
type Server struct {
	arena       *arena.Arena
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server honoring the env-driven resource
// limits. Zero limit fields fall back to the defaults.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(a *arena.Arena, limits config.ResourceLimits) *Server {
	def := config.DefaultLimits()
	if limits.MaxRequestsPerSec <= 0 {
		limits.MaxRequestsPerSec = def.MaxRequestsPerSec
	}
	if limits.RequestBurst <= 0 {
		limits.RequestBurst = def.RequestBurst
	}
	if limits.MaxBufferedClients <= 0 {
		limits.MaxBufferedClients = def.MaxBufferedClients
	}

	s := &Server{
		arena: a,
		wsHub: NewWebSocketHub(limits.MaxBufferedClients),
	}

	// Create rate limiter (tracked so Stop can clean it up)
	s.rateLimiter = NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: float64(limits.MaxRequestsPerSec),
		Burst:             limits.RequestBurst,
		CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
	})

	s.router = NewRouter(RouterConfig{
		Arena:       a,
		RateLimiter: s.rateLimiter,
	})

	// WebSocket route needs the hub instance, so it can't be part of the
	// generic NewRouter factory
	s.router.Get("/ws", s.handleWS)

	return s
}

// Hub returns the WebSocket hub so callers can wire it as an arena sink.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.arena)

	log.Printf("api server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
