// Package http exposes the application services over a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scanops/oms/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// NotifyToken guards POST /api/jobs/:id/notify when set
	NotifyToken string
}

// Services are the use cases the API is built on
type Services struct {
	Jobs          service.JobService
	Templates     service.TemplateService
	Directory     service.DirectoryService
	Notifications service.NotificationService
	Payments      service.PaymentService
	Outbox        service.OutboxService
	Reports       service.ReportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	mu         sync.Mutex
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(services, logger),
		logger:   logger,
	}
	s.router.Use(gin.Recovery(), s.loggingMiddleware())
	s.setupRoutes()
	return s
}

// loggingMiddleware writes one access log line per request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// requireToken rejects requests without the shared bearer token
func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "invalid notify token"})
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/clients", h.CreateClient)
		api.GET("/clients", h.ListClients)
		api.GET("/clients/:id", h.GetClient)
		api.PUT("/clients/:id", h.UpdateClient)

		api.POST("/users", h.CreateUser)
		api.GET("/users", h.ListUsers)

		api.POST("/technicians", h.CreateTechnician)
		api.GET("/technicians", h.ListTechnicians)

		api.POST("/workflow-templates", h.CreateTemplate)
		api.GET("/workflow-templates", h.ListTemplates)
		api.GET("/workflow-templates/:id", h.GetTemplate)
		api.PUT("/workflow-templates/:id", h.UpdateTemplate)

		api.POST("/jobs", h.CreateJob)
		api.GET("/jobs", h.ListJobs)
		api.GET("/jobs/:id", h.GetJob)
		api.PATCH("/jobs/:id", h.PatchJob)
		api.POST("/jobs/:id/steps/:index/complete", h.CompleteStep)
		api.POST("/jobs/:id/notify", requireToken(s.config.NotifyToken), h.NotifyClient)

		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)

		api.POST("/payments", h.CreatePayment)
		api.GET("/payments", h.ListPayments)
		api.POST("/payments/import", h.ImportPayments)
		api.GET("/payments/candidates", h.PaymentCandidates)
		api.POST("/payments/:id/match", h.MatchPayment)
		api.POST("/payments/:id/unmatch", h.UnmatchPayment)

		api.GET("/outbox", h.ListOutbox)
		api.POST("/outbox/:id/retry", h.RetryOutbox)

		api.GET("/reports/jobs.xlsx", h.JobsReport)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Stop gracefully stops the HTTP server. Calling it again is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
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
