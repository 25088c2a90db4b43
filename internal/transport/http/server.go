package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"metricore/internal/config"
	"metricore/internal/transport/http/handlers"
	metricsHandler "metricore/internal/transport/http/handlers/metrics"
	widgetHandler "metricore/internal/transport/http/handlers/widget"
	"metricore/internal/transport/http/middleware"
)

// Server represents the HTTP server
type Server struct {
	config       *config.Config
	logger       *slog.Logger
	server       *http.Server
	handlers     *handlers.Handlers
	metricsEntry *metricsHandler.EntryHandler
	widgetEval   *widgetHandler.Handler
	engine       *gin.Engine
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	handlers *handlers.Handlers,
	metricsEntry *metricsHandler.EntryHandler,
	widgetEval *widgetHandler.Handler,
) *Server {
	return &Server{
		config:       cfg,
		logger:       logger,
		handlers:     handlers,
		metricsEntry: metricsEntry,
		widgetEval:   widgetEval,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Setup Gin mode
	if s.config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Create Gin engine
	s.engine = gin.New()

	// Setup CORS with security validation
	corsConfig := cors.DefaultConfig()

	// Validate wildcard incompatibility with credentials
	if len(s.config.Server.CORSAllowedOrigins) == 1 && s.config.Server.CORSAllowedOrigins[0] == "*" {
		// CRITICAL: Wildcard incompatible with AllowCredentials (cookies won't work)
		s.logger.Error("CORS misconfiguration: cannot use wildcard (*) origins with AllowCredentials (httpOnly cookies require specific origins). " +
			"Set specific origins in CORS_ALLOWED_ORIGINS environment variable.")
		return errors.New("invalid CORS configuration: wildcard origins incompatible with credentials")
	}

	// Configure specific origins (only reached if not wildcard)
	corsConfig.AllowOrigins = s.config.Server.CORSAllowedOrigins

	// Validate at least one origin is configured
	if len(s.config.Server.CORSAllowedOrigins) == 0 {
		s.logger.Error("CORS misconfiguration: AllowCredentials requires specific AllowedOrigins. " +
			"Set CORS_ALLOWED_ORIGINS environment variable.")
		return errors.New("invalid CORS configuration: no origins specified")
	}

	corsConfig.AllowMethods = s.config.Server.CORSAllowedMethods
	corsConfig.AllowHeaders = s.config.Server.CORSAllowedHeaders
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 5 * time.Minute
	s.engine.Use(cors.New(corsConfig))

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	// Start server (blocking - signal handling done by cmd/server/main.go)
	s.logger.Info("starting HTTP server", "port", s.config.Server.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Global middleware
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger(s.logger))
	s.engine.Use(middleware.Recovery(s.logger))

	// Health check (no auth required, support both GET and HEAD for Docker)
	s.engine.GET("/health", s.handlers.Health.Check)
	s.engine.HEAD("/health", s.handlers.Health.Check)
	s.engine.GET("/health/ready", s.handlers.Health.Ready)
	s.engine.HEAD("/health/ready", s.handlers.Health.Ready)
	s.engine.GET("/health/live", s.handlers.Health.Live)
	s.engine.HEAD("/health/live", s.handlers.Health.Live)

	// Prometheus scrape endpoint
	s.engine.GET("/metrics", s.handlers.Metrics.Handler)

	// Metric entry and widget evaluation routes (/api/v1), bearer-token guarded
	metricsAPI := s.engine.Group("/api/v1")
	metricsAPI.Use(middleware.BearerAuth(&s.config.Auth))
	s.setupMetricsRoutes(metricsAPI)
}

// setupMetricsRoutes configures the metric entry submission and widget
// evaluation endpoints (/api/v1/metrics/entries, /api/v1/widgets/evaluate).
func (s *Server) setupMetricsRoutes(router *gin.RouterGroup) {
	router.POST("/metrics/entries", s.metricsEntry.Submit)
	router.POST("/widgets/evaluate", s.widgetEval.Evaluate)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
