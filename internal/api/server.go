package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// Server is the HTTP API server with WebSocket support.
type Server struct {
	runner      RunnerInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter

	streamRate int
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// MaxAgents caps agents added over the API. Zero means no cap.
	MaxAgents int

	// StreamRate is how many snapshots per second the WebSocket stream
	// pushes. Defaults to 20.
	StreamRate int

	// CORSOrigins overrides the allowed CORS origins.
	CORSOrigins []string
}

// NewServer creates the API server. Background workers do not start
// until Start is called, so tests can construct a server and use
// Router() without goroutines or listeners.
func NewServer(runner RunnerInterface, cfg ServerConfig) *Server {
	if cfg.StreamRate <= 0 {
		cfg.StreamRate = 20
	}

	s := &Server{
		runner:      runner,
		wsHub:       NewWebSocketHub(),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		streamRate:  cfg.StreamRate,
	}

	s.router = NewRouter(RouterConfig{
		Runner:      runner,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
		MaxAgents:   cfg.MaxAgents,
	})

	// The WebSocket route needs the hub instance, so it is added here
	// rather than in the NewRouter factory.
	s.router.Get("/ws", s.wsHub.HandleWS)

	return s
}

// Start begins the broadcast loop and serves HTTP on addr. It blocks
// until the listener fails.
func (s *Server) Start(addr string) error {
	s.wsHub.StartBroadcastLoop(s.runner, s.streamRate)

	log.Printf("api server listening on %s", addr)
	return errors.Wrap(http.ListenAndServe(addr, s.router), "api server")
}

// Stop shuts down the background workers.
func (s *Server) Stop() {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}
