// Package server answers elevation queries over HTTP without loading the
// whole raster. Every request decodes the chunks it touches through its own
// LRU cache, so requests share nothing but the read-only chunk source.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/raster"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// shutdownTimeout bounds graceful shutdown once the serve context ends.
const shutdownTimeout = 5 * time.Second

// Config controls the elevation service.
type Config struct {
	Addr      string
	CacheSize int
	Layout    raster.Layout
	// MaxPoints caps a batch request. Zero means DefaultMaxPoints.
	MaxPoints int
}

// Server is the elevation HTTP service.
type Server struct {
	src     raster.ChunkSource
	cfg     Config
	log     *zap.Logger
	metrics *metrics
	router  *gin.Engine
}

// New validates src against cfg.Layout and builds the router. Metrics are
// registered on reg and exposed on /metrics; a nil reg gets a private
// registry.
func New(src raster.ChunkSource, cfg Config, log *zap.Logger, reg *prometheus.Registry) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = raster.DefaultCacheSize
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	// The layout is checked once here; per-request samplers reuse it.
	if _, err := raster.NewSampler(src, cfg.Layout, cfg.CacheSize); err != nil {
		return nil, err
	}

	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	s := &Server{src: src, cfg: cfg, log: log, metrics: m}
	s.router = s.setupRoutes(reg)
	return s, nil
}

func (s *Server) setupRoutes(reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(s.log))
	r.Use(s.metrics.handler())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	v1 := r.Group("/v1")
	v1.GET("/elevation", s.handleElevation)
	v1.POST("/elevation", s.handleElevationBatch)
	return r
}

// Handler returns the service's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("elevation server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.log.Info("elevation server stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	w, h := s.src.Dimensions()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"width":  w,
		"height": h,
		"chunks": s.src.ChunkCount(),
	})
}
