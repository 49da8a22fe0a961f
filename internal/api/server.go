package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server bundles the HTTP router, the rate limiter and the live state
// feed behind one listener.
type Server struct {
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	log         *zap.Logger
}

// ServerConfig carries everything needed to serve the game API.
type ServerConfig struct {
	App         GameService
	Addr        string
	ManualTicks bool
	WWWRoot     string
	Logger      *zap.Logger
	RateLimit   RateLimitConfig
}

// NewServer wires the full API surface. No listener is opened until
// Start is called, so tests can take Router() and serve it with
// httptest.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rateLimiter := NewIPRateLimiter(cfg.RateLimit)
	router := NewRouter(RouterConfig{
		App:         cfg.App,
		ManualTicks: cfg.ManualTicks,
		WWWRoot:     cfg.WWWRoot,
		Logger:      log,
		RateLimiter: rateLimiter,
		StateStream: NewStateStream(cfg.App, log),
	})

	return &Server{
		router:      router,
		rateLimiter: rateLimiter,
		httpServer:  &http.Server{Addr: cfg.Addr, Handler: router},
		log:         log,
	}
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving the API until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info("server started", zap.String("address", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
