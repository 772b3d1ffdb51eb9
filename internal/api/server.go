// Package api exposes the assessment pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pharmaco-risk-server/internal/domain"
	"github.com/pharmaco-risk-server/internal/metrics"
	"github.com/pharmaco-risk-server/internal/middleware"
	"github.com/pharmaco-risk-server/internal/repository"
	"github.com/pharmaco-risk-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// readinessTimeout bounds each dependency check in /ready.
const readinessTimeout = 2 * time.Second

// Dependencies are the collaborators behind the HTTP surface. Store and
// Predictor may be nil.
type Dependencies struct {
	Service   *service.AssessmentService
	Store     repository.AssessmentStore
	Predictor domain.HealthChecker
	Logger    *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	config    domain.ServerConfig
	service   *service.AssessmentService
	store     repository.AssessmentStore
	predictor domain.HealthChecker
	logger    *logrus.Logger
	router    *gin.Engine
	server    *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(config domain.ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"correlation_id": middleware.GetCorrelationID(c),
			"path":           c.Request.URL.Path,
			"panic":          fmt.Sprint(recovered),
		}).Error("Handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			domain.NewAPIError(domain.ErrInternalServer, "Internal server error", "", middleware.GetCorrelationID(c)))
	}))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(metrics.Middleware())

	s := &Server{
		config:    config,
		service:   deps.Service,
		store:     deps.Store,
		predictor: deps.Predictor,
		logger:    logger,
		router:    router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
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
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
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
	s.router.GET("/ready", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.NoRoute(func(c *gin.Context) {
		s.respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Route not found", c.Request.URL.Path)
	})

	v1 := s.router.Group("/api/v1")
	{
		assessments := v1.Group("/assessments")
		assessments.POST("", middleware.MaxBodySize(s.config.MaxUploadBytes), s.handleCreateAssessment)
		assessments.GET("", s.handleListAssessments)
		assessments.GET("/:id", s.handleGetAssessment)
		assessments.DELETE("/:id", s.handleDeleteAssessment)

		v1.GET("/reference/drugs", s.handleReferenceDrugs)
	}
}

// handleHealth handles liveness requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}

// handleReady reports dependency status. A degraded model endpoint is
// reported but does not fail readiness; an unreachable store does.
func (s *Server) handleReady(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK

	switch {
	case s.predictor == nil:
		checks["predictor"] = "disabled"
	default:
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		err := s.predictor.Health(ctx)
		cancel()
		if err != nil {
			checks["predictor"] = "degraded: " + err.Error()
		} else {
			checks["predictor"] = "ok"
		}
	}

	switch {
	case s.store == nil:
		checks["storage"] = "disabled"
	default:
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		err := s.store.Health(ctx)
		cancel()
		if err != nil {
			checks["storage"] = "unavailable: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}

// respondError writes a standardized APIError body.
func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, middleware.GetCorrelationID(c)))
}

// respondValidation writes a 400 VALIDATION_ERROR naming the rejected field.
func (s *Server) respondValidation(c *gin.Context, verr *domain.ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, verr.ToAPIError(middleware.GetCorrelationID(c)))
}
