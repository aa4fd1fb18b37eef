// Package api provides the HTTP API server and handlers for the catalog.
package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/tradepost/catalog-server/internal/ratelimit"
)

// Config holds HTTP-layer settings.
type Config struct {
	AllowedOrigins     []string
	MutationsPerMinute int
	MutationBurst      int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
	limiter  *ratelimit.KeyedRateLimiter
	metrics  *Metrics
	upgrader websocket.Upgrader
}

var registerErrorHandler sync.Once

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MutationsPerMinute <= 0 {
		cfg.MutationsPerMinute = 120
	}
	if cfg.MutationBurst <= 0 {
		cfg.MutationBurst = 20
	}

	s := &Server{
		services: services,
		router:   chi.NewRouter(),
		logger:   logger,
		limiter:  ratelimit.New(ratelimit.PerMinute(cfg.MutationsPerMinute), cfg.MutationBurst, 0),
		metrics:  NewMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Tradepost Catalog API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"identity": {
			Type: "apiKey",
			In:   "header",
			Name: HeaderUserID,
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	registerErrorHandler.Do(RegisterErrorHandler)

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Shutdown stops background work owned by the server.
func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return nil
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderUserID, HeaderUserRole},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(s.metrics.Instrument)
	s.router.Use(identityMiddleware)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(mutationRateLimit(s.limiter, s.metrics, s.logger))
}

// setupRoutes registers every route.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.Get("/api/v1/ws", s.handleWebSocket)

	s.registerHealthRoutes()
	s.registerCategoryRoutes()
	s.registerCategoryRequestRoutes()
	s.registerMessagingRoutes()
}
