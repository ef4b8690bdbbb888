package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"UpWatch/internal/backend/dependencies"
	"UpWatch/internal/backend/handlers"
)

type Server struct {
	router     *gin.Engine
	config     *Config
	container  *dependencies.Container
	handlers   *handlers.Handlers
	httpServer *http.Server
}

type Config struct {
	Port int
	Mode string
}

// New creates the HTTP server with dependency injection.
func New(config *Config, container *dependencies.Container) *Server {
	if config.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		router:    gin.New(),
		config:    config,
		container: container,
		handlers:  handlers.NewHandlers(container),
	}

	server.setupMiddlewares()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddlewares() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggerMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.requestIDMiddleware())
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ready", s.readyCheck)

	// Prometheus metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	api := s.router.Group("/api/v1")
	api.Use(s.handlers.AuthMiddleware())
	{
		// Monitor CRUD (owners and admins)
		monitors := api.Group("/monitors")
		{
			monitors.POST("", s.handlers.CreateMonitor)
			monitors.GET("", s.handlers.ListMonitors)
			monitors.GET("/:id", s.handlers.GetMonitor)
			monitors.PUT("/:id", s.handlers.UpdateMonitor)
			monitors.DELETE("/:id", s.handlers.DeleteMonitor)
			monitors.GET("/:id/results", s.handlers.GetMonitorResults)
		}

		// Claim protocol
		checks := api.Group("/checks")
		{
			checks.GET("/pending", s.handlers.PendingChecks)
			checks.POST("/claim", s.handlers.ClaimChecks)
			checks.POST("/result", s.handlers.SubmitResult)
			checks.POST("/execute", s.handlers.ExecuteCheck)
		}
	}

	// WebSocket routes
	ws := s.router.Group("/ws")
	{
		ws.GET("/results", s.handlers.ResultsWebSocket)
	}

	// 404 handler
	s.router.NoRoute(s.notFoundHandler)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "upwatch-backend",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) readyCheck(c *gin.Context) {
	if s.container.MonitorStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "Database not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "not_found",
		"message": "Endpoint not found",
		"path":    c.Request.URL.Path,
	})
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if query != "" {
			path = path + "?" + query
		}

		logger := slog.Info
		if statusCode >= 400 {
			logger = slog.Warn
		}
		if statusCode >= 500 {
			logger = slog.Error
		}

		logger("HTTP request",
			"status", statusCode,
			"method", method,
			"path", path,
			"ip", clientIP,
			"latency", latency,
			"error", errorMessage,
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Api-Key, X-User-Id, X-User-Role")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting HTTP server",
		"port", s.config.Port,
		"mode", s.config.Mode,
		"address", addr,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
