// Package api is the HTTP surface: article CRUD over the cache coordinator,
// cached comment lists, the cache hit/miss report, health checks and the
// Prometheus scrape.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/health"
	"github.com/KOMKZ/go-yogan-articlecache/httpx"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/KOMKZ/go-yogan-articlecache/middleware"
	"github.com/KOMKZ/go-yogan-articlecache/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Deps route handlers and optional middleware; nil members are skipped
type Deps struct {
	Articles     *ArticleHandler
	Comments     *CommentHandler
	CacheMetrics *CacheMetricsHandler
	Health       *health.Aggregator
	Scrape       http.Handler
	HTTPMetrics  *middleware.HTTPMetrics
	Telemetry    *telemetry.Manager
	Logger       *logger.CtxZapLogger
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(cfg Config, deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// 顺序：otelgin 建 span -> TraceID 读取 span -> 指标 -> 日志 -> recovery
	if deps.Telemetry != nil && deps.Telemetry.Enabled() {
		engine.Use(otelgin.Middleware(deps.Telemetry.ServiceName(),
			otelgin.WithTracerProvider(deps.Telemetry.TracerProvider())))
	}
	if cfg.TraceID {
		engine.Use(middleware.TraceID(middleware.DefaultTraceConfig()))
	}
	if deps.HTTPMetrics != nil {
		engine.Use(deps.HTTPMetrics.Handler())
	}
	engine.Use(middleware.RequestLog(cfg.RequestLog, log))
	engine.Use(httpx.ErrorLoggingMiddleware(cfg.ErrorLogging, log))
	engine.Use(middleware.Recovery(log))

	engine.NoRoute(httpx.NoRouteHandler())
	engine.NoMethod(httpx.NoMethodHandler())

	if deps.Articles != nil {
		deps.Articles.Register(engine)
	}
	if deps.Comments != nil {
		deps.Comments.Register(engine)
	}
	if deps.CacheMetrics != nil {
		deps.CacheMetrics.Register(engine)
	}
	middleware.RegisterHealthRoutes(engine, deps.Health)
	if deps.Scrape != nil {
		engine.GET("/metrics", gin.WrapH(deps.Scrape))
	}

	return engine
}

// Server HTTP server lifecycle
type Server struct {
	cfg    Config
	engine *gin.Engine
	logger *logger.CtxZapLogger

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer wraps engine
func NewServer(cfg Config, engine *gin.Engine, log *logger.CtxZapLogger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{cfg: cfg, engine: engine, logger: log}
}

// Engine gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr bound address, nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the port and serves in the background.
// It waits briefly so immediate serve errors are returned.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("http server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("端口 %d 不可用: %w", s.cfg.Port, err)
	}

	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.logger.Error("http server start failed", zap.Error(err))
		return fmt.Errorf("HTTP 服务启动失败: %w", err)
	case <-time.After(50 * time.Millisecond):
	}

	s.httpServer = srv
	s.addr = ln.Addr()
	s.logger.Info("http server started",
		zap.String("addr", ln.Addr().String()),
		zap.String("mode", s.cfg.Mode))
	return nil
}

// Shutdown drains in-flight requests within ShutdownTimeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
