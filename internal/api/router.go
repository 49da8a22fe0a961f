package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router. The struct is designed for dependency injection: tests build
// a router around a stub service and an httptest server.
type RouterConfig struct {
	// App is the game application surface (required).
	App GameService

	// ManualTicks enables the tick endpoint. It is set when the server
	// runs without an automatic tick period.
	ManualTicks bool

	// WWWRoot is the directory of the static frontend. Empty disables
	// static file serving.
	WWWRoot string

	// Logger receives request logs. Nil silences them.
	Logger *zap.Logger

	// RateLimiter is an optional pre-configured rate limiter. If nil, a
	// new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil. If both are
	// nil the defaults apply.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the allowed CORS origins.
	CORSOrigins []string

	// DisableLogging drops the request logger middleware (useful for
	// benchmarks).
	DisableLogging bool

	// StateStream optionally serves the live state feed on /ws.
	StateStream *StateStream
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is pure: no goroutines are started and no listeners are
// opened, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware order matters: log everything, recover before the rate
	// limiter can be skipped, reject abuse before CORS work.
	if !cfg.DisableLogging {
		r.Use(requestLogger(log))
	}
	r.Use(recoverer(log))

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
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &handlers{
		app:         cfg.App,
		manualTicks: cfg.ManualTicks,
	}

	// Every endpoint accepts all methods and answers 405 with an Allow
	// header itself, so the method checks stay next to the handlers.
	r.HandleFunc("/api/v1/maps", h.handleMaps)
	r.HandleFunc("/api/v1/maps/{id}", func(w http.ResponseWriter, req *http.Request) {
		h.handleMapByID(w, req, chi.URLParam(req, "id"))
	})
	r.HandleFunc("/api/v1/game/join", h.handleJoin)
	r.HandleFunc("/api/v1/game/players", h.handlePlayers)
	r.HandleFunc("/api/v1/game/state", h.handleState)
	r.HandleFunc("/api/v1/game/player/action", h.handleAction)
	r.HandleFunc("/api/v1/game/tick", h.handleTick)
	r.HandleFunc("/api/v1/game/records", h.handleRecords)

	if cfg.StateStream != nil {
		r.Get("/ws", cfg.StateStream.Handle)
	}

	var static http.Handler
	if cfg.WWWRoot != "" {
		static = http.FileServer(http.Dir(cfg.WWWRoot))
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/api" || strings.HasPrefix(req.URL.Path, "/api/") {
			h.handleBadRequest(w, req)
			return
		}
		if static != nil {
			static.ServeHTTP(w, req)
			return
		}
		http.NotFound(w, req)
	})

	return r
}

// requestLogger logs one structured line per request, mirroring the
// fields the frontend log tooling expects.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			// The route pattern keeps the metric label bounded.
			if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
				RecordRequest(r.Method, pattern, time.Since(start))
			}
			log.Info("request received",
				zap.String("ip", GetClientIP(r)),
				zap.String("URI", r.RequestURI),
				zap.String("method", r.Method),
				zap.Int("response_time", int(time.Since(start).Milliseconds())),
				zap.Int("code", ww.Status()),
				zap.String("content_type", ww.Header().Get("Content-Type")))
		})
	}
}

// recoverer turns handler panics into plain 500 responses.
func recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic", zap.Any("panic", rec), zap.String("URI", r.RequestURI))
					w.Header().Set("Content-Type", "text/plain")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte("Internal Server Error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
