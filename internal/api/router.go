package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"frameclash/internal/arena"
	"frameclash/internal/combat"
)

// ArenaInterface defines the arena methods used by the API.
// This interface enables mocking for tests without spinning up the host loop.
// Keep this minimal - only include methods the API layer actually calls.
type ArenaInterface interface {
	// Snapshot returns the current point-in-time arena view
	Snapshot() arena.Snapshot
	// Join adds a fighter
	Join(name string) error
	// Leave removes a fighter
	Leave(name string) error
	// RequestAction forwards an action request to a fighter's machine
	RequestAction(name string, id combat.ActionID) (bool, error)
	// Stun force-interrupts a fighter, honoring hyper armor
	Stun(name string, seconds float64) (bool, error)
	// Catalog returns the shared action catalog
	Catalog() *combat.Catalog
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Arena: testArena,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Arena is the fight host (required)
	Arena ArenaInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default local origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// requestMetrics times every request and records it against the matched chi
// route pattern, keeping the endpoint label cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			// rejected before routing (rate limit, CORS) or no matching route
			endpoint = "unmatched"
		}
		RecordRequest(r.Method, endpoint, time.Since(start))
	})
}

// routerHandlers holds the handler dependencies for the router.
type routerHandlers struct {
	arena ArenaInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects beyond the rate
// limiter's cleanup goroutine when one isn't injected:
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{arena: cfg.Arena}

	r.Route("/api", func(r chi.Router) {
		// Arena state
		r.Get("/state", h.handleGetState)
		r.Get("/actions", h.handleGetActions)

		// Fighter management
		r.Post("/fighter/join", h.handleFighterJoin)
		r.Post("/fighter/leave", h.handleFighterLeave)
		r.Post("/fighter/action", h.handleFighterAction)
		r.Post("/fighter/stun", h.handleFighterStun)
	})

	return r
}
