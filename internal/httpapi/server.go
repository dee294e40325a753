// Package httpapi provides the HTTP API for toolscoped.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/toolscope/internal/embeddings"
	"github.com/fyrsmithlabs/toolscope/internal/filter"
	"github.com/fyrsmithlabs/toolscope/internal/registry"
)

// Server provides HTTP endpoints for tool filtering.
type Server struct {
	echo    *echo.Echo
	service *filter.Service
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(service *filter.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("filter service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:            "127.0.0.1",
			Port:            8921,
			ShutdownTimeout: 10 * time.Second,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.ReadTimeout > 0 {
		e.Server.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		e.Server.WriteTimeout = cfg.WriteTimeout
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/filter", s.handleFilter)
	v1.GET("/stats", s.handleStats)
	v1.DELETE("/cache", s.handleCacheClear)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	ToolCount int    `json:"tool_count"`
}

// handleHealth reports readiness. The server is ready once the tool
// registry has been built.
func (s *Server) handleHealth(c echo.Context) error {
	stats := s.service.Stats()
	if !stats.Initialized {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "initializing",
			ToolCount: 0,
		})
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		ToolCount: stats.ToolCount,
	})
}

// handleFilter ranks catalog tools against the request context.
func (s *Server) handleFilter(c echo.Context) error {
	var req filter.Request
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid filter request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.service.Filter(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrUninitialized):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "tool registry not initialized")
		case errors.Is(err, embeddings.ErrEmbeddingFailed):
			return echo.NewHTTPError(http.StatusBadGateway, "embedding backend unavailable")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return echo.NewHTTPError(http.StatusRequestTimeout, "request cancelled")
		default:
			s.logger.Error("filter request failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "filter failed")
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// handleStats returns registry and cache statistics.
func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Stats())
}

// handleCacheClear drops all cached context embeddings.
func (s *Server) handleCacheClear(c echo.Context) error {
	s.service.ClearCache()
	return c.NoContent(http.StatusNoContent)
}

// Start starts the HTTP server and blocks until the context is cancelled.
//
// When the context is cancelled the server performs graceful shutdown with
// the configured timeout. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance for registering additional routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
