// Package api exposes the consultation pipeline and the feedback store over
// HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/feedback"
	"github.com/medreport-server/internal/health"
)

// Processor is the slice of the consultation pipeline the API needs.
type Processor interface {
	Process(ctx context.Context, req *domain.ConsultationRequest) (*domain.ConsultationResult, error)
}

// Server represents the HTTP server
type Server struct {
	logger   *logrus.Logger
	config   domain.ServerConfig
	pipeline Processor
	store    feedback.Store
	checker  *health.Checker
	version  string

	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	config domain.ServerConfig,
	pipeline Processor,
	store feedback.Store,
	checker *health.Checker,
	rulesVersion string,
	logger *logrus.Logger,
) *Server {
	if logger.GetLevel() != logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	if config.MaxUploadMB > 0 {
		router.MaxMultipartMemory = config.MaxUploadMB << 20
	}

	server := &Server{
		logger:   logger,
		config:   config,
		pipeline: pipeline,
		store:    store,
		checker:  checker,
		version:  rulesVersion,
		router:   router,
	}

	server.setupRoutes()

	return server
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/consultations", s.handleConsultation)

		v1.POST("/feedback", s.handleSaveFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/stats", s.handleFeedbackStats)
		v1.GET("/feedback/export", s.handleExportFeedback)
		v1.POST("/feedback/import", s.handleImportFeedback)
		v1.DELETE("/feedback/:id", s.handleDeleteFeedback)
	}
}

// handleHealth reports the aggregate dependency health. Degraded still
// returns 200: the pipeline works without the optional services.
func (s *Server) handleHealth(c *gin.Context) {
	report := s.checker.Check(c.Request.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":        report.Status,
		"checked_at":    report.CheckedAt,
		"components":    report.Components,
		"rules_version": s.version,
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
