// Package api exposes the running simulation over HTTP: JSON state and
// control endpoints plus a WebSocket stream of per-tick snapshots.
package api

import (
	"net/http"

	"crowdsim/internal/geom"
	"crowdsim/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RunnerInterface defines the simulation methods used by the API.
// It enables mocking in tests without spinning up the full tick loop.
// Keep this minimal: only methods the API layer actually calls.
type RunnerInterface interface {
	// Snapshot returns the latest lock-free immutable snapshot.
	Snapshot() *sim.Snapshot
	// AddAgent adds an agent at position heading for goal; -1 on failure.
	AddAgent(position, goal geom.Vec2) int
	// SetGoal retargets an existing agent.
	SetGoal(id int, goal geom.Vec2) bool
	// AddObstacle adds a polygon; -1 for fewer than 2 vertices.
	AddObstacle(vertices []geom.Vec2) int
	// ProcessObstacles commits pending obstacles to the spatial index.
	ProcessObstacles()
	// ObstacleOutlines returns the polygon outlines added so far.
	ObstacleOutlines() [][]geom.Vec2
}

// RouterConfig contains the dependencies needed to construct the HTTP
// router. Designed for dependency injection: tests pass a mock runner
// and a permissive rate limit.
type RouterConfig struct {
	// Runner is the simulation (required).
	Runner RunnerInterface

	// RateLimiter is an optional pre-configured rate limiter. If nil,
	// one is created from RateLimitConfig (or the defaults).
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the allowed CORS origins.
	CORSOrigins []string

	// MaxAgents caps agents added over the API. Zero means no cap.
	MaxAgents int

	// DisableLogging disables the request logger middleware.
	DisableLogging bool
}

// NewRouter builds the HTTP router for the given configuration.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	limiter := cfg.RateLimiter
	if limiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		limiter = NewIPRateLimiter(rlCfg)
	}
	r.Use(limiter.Middleware)

	h := &routerHandlers{runner: cfg.Runner, maxAgents: cfg.MaxAgents}

	r.Get("/healthz", metricsMiddleware("/healthz", h.handleHealth))
	r.Get("/api/state", metricsMiddleware("/api/state", h.handleGetState))
	r.Get("/api/obstacles", metricsMiddleware("/api/obstacles", h.handleGetObstacles))
	r.Post("/api/agents", metricsMiddleware("/api/agents", h.handleAddAgent))
	r.Post("/api/agents/{id}/goal", metricsMiddleware("/api/agents/{id}/goal", h.handleSetGoal))
	r.Post("/api/obstacles", metricsMiddleware("/api/obstacles", h.handleAddObstacle))

	return r
}

// routerHandlers bundles the dependencies of the HTTP handlers.
type routerHandlers struct {
	runner    RunnerInterface
	maxAgents int
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
