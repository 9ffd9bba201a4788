// Package httpapi exposes backtest runs over HTTP.
//
// Runs are submitted with POST /api/runs and execute in background
// goroutines. Their records, trade ledgers and daily results are served from
// the configured stores, and live engine events are streamed over websocket.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/observability"
	"cta-backtester/internal/storage"
	"cta-backtester/internal/stream"
)

// ErrShutdown is recorded on runs still queued when the server stops.
var ErrShutdown = errors.New("server shutting down")

// Stores groups the stores a server persists runs to.
type Stores struct {
	Runs   storage.RunStore
	Trades storage.TradeStore
	Daily  storage.DailyResultStore
}

// Options configure a Server.
type Options struct {
	Stores Stores
	Runner *backtest.Runner

	// Defaults fill settings a request leaves out.
	Defaults backtest.Settings

	Hub      *stream.Hub
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer // nil serves the default registry
	Logger   logrus.FieldLogger

	// MaxConcurrent bounds the number of runs executing at once.
	MaxConcurrent int

	NewID func() string
	Now   func() time.Time
}

// Server executes and serves backtest runs.
type Server struct {
	stores   Stores
	runner   *backtest.Runner
	defaults backtest.Settings
	hub      *stream.Hub
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	log      logrus.FieldLogger
	newID    func() string
	now      func() time.Time

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	router *gin.Engine
}

// NewServer creates a server and its routes.
func NewServer(opts Options) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		stores:   opts.Stores,
		runner:   opts.Runner,
		defaults: opts.Defaults,
		hub:      opts.Hub,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		log:      opts.Logger.WithField("component", "httpapi"),
		newID:    opts.NewID,
		now:      opts.Now,
		sem:      make(chan struct{}, opts.MaxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(observability.HandlerFor(s.gatherer)))
	} else {
		r.GET("/metrics", gin.WrapH(observability.Handler()))
	}

	api := r.Group("/api")
	api.POST("/runs", s.handleCreateRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/trades", s.handleGetTrades)
	api.GET("/runs/:id/daily", s.handleGetDaily)
	api.GET("/runs/:id/stream", s.handleStream)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request served")
	}
}

// Wait blocks until every submitted run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Shutdown cancels queued and executing runs and waits for them to record
// their final status, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
