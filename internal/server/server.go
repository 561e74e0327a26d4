// Package server exposes the activity report over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/naka-gawa/activity-stats/internal/domain"
	"github.com/naka-gawa/activity-stats/internal/usecase"
)

// Gatherer is the narrow contract the HTTP layer needs from the use case.
type Gatherer interface {
	GatherActivity(ctx context.Context, registry *domain.Registry) domain.ActivityReport
}

// Config holds the HTTP-facing settings.
type Config struct {
	Addr string
	// Strict turns any -1 entry into a 500 response for the whole request.
	Strict     bool
	CORSOrigin string
}

// Server provides the HTTP API over a fixed registry.
type Server struct {
	cfg       Config
	registry  *domain.Registry
	gatherer  Gatherer
	logger    *zap.Logger
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(cfg Config, registry *domain.Registry, gatherer Gatherer, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		registry:  registry,
		gatherer:  gatherer,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors(s.cfg.CORSOrigin))

	r.GET("/", s.handleActivity)
	r.GET("/summary", s.handleSummary)
	r.GET("/healthz", s.handleHealth)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server. In-flight requests keep a live
// context until Shutdown returns, so their gathers finish with real results.
func (s *Server) Stop() error {
	defer s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleActivity(c *gin.Context) {
	report := s.gatherer.GatherActivity(c.Request.Context(), s.registry)

	if s.cfg.Strict {
		if failed := report.Failed(); len(failed) > 0 {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "one or more upstreams failed",
				"failed": failed,
			})
			return
		}
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSummary(c *gin.Context) {
	report := s.gatherer.GatherActivity(c.Request.Context(), s.registry)
	c.JSON(http.StatusOK, usecase.Summarize(report))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"targets": s.registry.Len(),
		"uptime":  time.Since(s.startTime).String(),
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// cors allows the report to be read from pages served by another origin.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
