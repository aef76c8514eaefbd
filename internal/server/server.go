// Package server exposes the document pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	pdfservice "github.com/alnah/go-pdfservice"
	"github.com/alnah/go-pdfservice/internal/metrics"
)

// Default server settings.
const (
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// ErrListen reports that the listener failed before shutdown was requested.
var ErrListen = errors.New("http listener failed")

// Compile-time interface checks.
var (
	_ Processor           = (*pdfservice.Pipeline)(nil)
	_ pdfservice.Recorder = (*metrics.Collector)(nil)
)

// Processor runs documents for the HTTP handlers.
type Processor interface {
	Run(ctx context.Context, r *http.Request) (*pdfservice.Result, error)
	EncryptDocument(ctx context.Context, pdf []byte, password string) (*pdfservice.Result, error)
	RotateDocument(ctx context.Context, pdf []byte, angle int) (*pdfservice.Result, error)
}

// Options configures a Server.
type Options struct {
	Listen          string
	Logger          *slog.Logger
	Metrics         *metrics.Collector // nil disables the metrics endpoint
	MetricsPath     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// Server is the HTTP front of the pipeline.
type Server struct {
	engine          *gin.Engine
	proc            Processor
	logger          *slog.Logger
	listen          string
	shutdownTimeout time.Duration
	maxBodyBytes    int64
}

// New builds the router and registers every route.
func New(proc Processor, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = pdfservice.DefaultMaxBodyBytes
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = DefaultMetricsPath
	}

	s := &Server{
		engine:          gin.New(),
		proc:            proc,
		logger:          opts.Logger,
		listen:          opts.Listen,
		shutdownTimeout: opts.ShutdownTimeout,
		maxBodyBytes:    opts.MaxBodyBytes,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestIDMiddleware(opts.Logger))
	s.engine.Use(accessLogMiddleware())
	if opts.Metrics != nil {
		s.engine.Use(metricsMiddleware(opts.Metrics))
	}
	s.engine.Use(timeoutMiddleware(opts.RequestTimeout))

	s.engine.GET("/", s.handleInfo)
	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/generate", s.handleGenerate)
	s.engine.POST("/encrypt", s.handleEncrypt)
	s.engine.POST("/rotate", s.handleRotate)

	if opts.Metrics != nil {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			opts.Metrics,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.engine.GET(opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	s.engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not found")
	})
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %v", ErrListen, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", "cause", context.Cause(gctx), "timeout", s.shutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
