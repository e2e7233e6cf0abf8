// Package http provides the HTTP adapter for the application layer.
// Handlers translate requests into service calls and service errors into
// status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Location is the operating timezone used to resolve "today"
	Location *time.Location
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Location:     time.UTC,
	}
}

// Services groups the application services the handlers call
type Services struct {
	Materializer service.MaterializerService
	Lifecycle    service.LifecycleService
	Audit        service.AuditService
	Compliance   service.ComplianceService
}

// HealthChecker reports the state of the process dependencies
type HealthChecker interface {
	Health(ctx context.Context) HealthReport
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	auth       AuthConfig
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	services Services,
	auth AuthConfig,
	health HealthChecker,
	clock port.Clock,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	if config.Location == nil {
		config.Location = time.UTC
	}
	if clock == nil {
		clock = port.SystemClock{}
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(services, health, config.Location, clock, logger),
		auth:     auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1")
	api.Use(authMiddleware(s.auth))
	{
		api.GET("/health", h.HealthCheck)

		api.POST("/runs/generate", h.GenerateTasks)
		api.POST("/runs/close", h.CloseOverdue)

		api.GET("/tasks", h.ListTasks)
		api.GET("/tasks/:id", h.GetTask)
		api.GET("/tasks/:id/history", h.GetHistory)
		api.POST("/tasks/:id/start", requireOperator(), h.StartTask)
		api.POST("/tasks/:id/complete", requireOperator(), h.CompleteTask)
		api.POST("/tasks/:id/cancel", requireOperator(), h.CancelTask)
		api.POST("/tasks/:id/audit", requireOperator(), h.AuditTask)

		api.GET("/compliance", h.ComplianceSummary)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
