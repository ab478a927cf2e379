package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"land-grab/internal/metrics"
	"land-grab/internal/room"
)

// RoomDirectory is the read side of the room registry used by the HTTP API.
// Keep this minimal - only include methods the API layer actually calls.
type RoomDirectory interface {
	PublicRooms() []room.Summary
	Room(id string) (*room.Room, bool)
	Stats() room.Stats
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Rooms: registry,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Rooms is the room registry (required)
	Rooms RoomDirectory

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, local development origins are allowed.
	CORSOrigins []string

	// Connections reports open websocket connections for /api/stats.
	Connections func() int

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	rooms       RoomDirectory
	limiter     *IPRateLimiter
	connections func() int
}

// NewRouter constructs the HTTP router with all middleware and routes.
// Apart from the rate limiter's sweeper it starts nothing, so it is safe to
// use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(routePattern))

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
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	h := &routerHandlers{
		rooms:       cfg.Rooms,
		limiter:     rateLimiter,
		connections: cfg.Connections,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.handleGetStats)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.handleListRooms)
			r.Get("/{roomID}", h.handleGetRoom)
			r.Get("/{roomID}/minimap.png", h.handleMinimap)
		})
	})

	return r
}

// routePattern labels metrics by chi pattern so ids never become labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
