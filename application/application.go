// Package application 组装文章缓存服务：samber/do 管理组件创建，
// Run 负责启动顺序，Shutdown 按创建的逆序关闭。
package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/api"
	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/comment"
	"github.com/KOMKZ/go-yogan-articlecache/kafka"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/KOMKZ/go-yogan-articlecache/metrics"
	"github.com/KOMKZ/go-yogan-articlecache/warmer"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// AppState 应用状态
type AppState int

const (
	StateInit AppState = iota
	StateSetup
	StateRunning
	StateStopping
	StateStopped
)

// String 状态字符串表示
func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSetup:
		return "Setup"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ErrKafkaDisabled Publish 需要 kafka.enabled 与 kafka.producer.enabled
var ErrKafkaDisabled = errors.New("kafka producer is not enabled")

// Option 应用选项
type Option func(*Application)

// WithKafkaOptions 透传给 kafka.NewManager（测试时替换客户端）
func WithKafkaOptions(opts ...kafka.ManagerOption) Option {
	return func(a *Application) {
		a.kafkaOpts = append(a.kafkaOpts, opts...)
	}
}

// WithLoggerManager 替换日志管理器
func WithLoggerManager(m *logger.Manager) Option {
	return func(a *Application) {
		a.logMgr = m
	}
}

type shutdownHook struct {
	name string
	fn   func(context.Context) error
}

// Application 文章缓存服务
type Application struct {
	cfg       *AppConfig
	injector  *do.RootScope
	logMgr    *logger.Manager
	logger    *logger.CtxZapLogger
	kafkaOpts []kafka.ManagerOption

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     AppState
	shutdowns []shutdownHook
}

// New 校验配置并注册组件，不建立任何连接
func New(cfg *AppConfig, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Application{
		cfg:      cfg,
		injector: do.New(),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateInit,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logMgr == nil {
		a.logMgr = logger.NewManager(cfg.Logger)
	}
	a.logger = a.logMgr.GetLogger("app")

	a.registerProviders()

	a.logger.Debug("application initialized",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version))
	return a, nil
}

// Config 生效的配置
func (a *Application) Config() *AppConfig {
	return a.cfg
}

// Injector samber/do 注入器
func (a *Application) Injector() *do.RootScope {
	return a.injector
}

// Logger 应用日志
func (a *Application) Logger() *logger.CtxZapLogger {
	return a.logger
}

// Context 应用上下文，Cancel 或收到信号后结束
func (a *Application) Context() context.Context {
	return a.ctx
}

// Cancel 手动触发关闭
func (a *Application) Cancel() {
	a.cancel()
}

// State 当前状态
func (a *Application) State() AppState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Application) setState(state AppState) {
	a.mu.Lock()
	from := a.state
	a.state = state
	a.mu.Unlock()

	a.logger.Debug("State changed",
		zap.String("from", from.String()),
		zap.String("to", state.String()))
}

func (a *Application) onShutdown(name string, fn func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdowns = append(a.shutdowns, shutdownHook{name: name, fn: fn})
}

// Coordinator 文章缓存协调器（首次调用时连接数据库与 Redis）
func (a *Application) Coordinator() (*ArticleCoordinator, error) {
	return do.Invoke[*ArticleCoordinator](a.injector)
}

// Repository 文章存储（区域列表来自 databases 配置）
func (a *Application) Repository() (*article.Repository, error) {
	return do.Invoke[*article.Repository](a.injector)
}

// Comments 评论列表缓存
func (a *Application) Comments() (*comment.Service, error) {
	return do.Invoke[*comment.Service](a.injector)
}

// Warmer 预热任务
func (a *Application) Warmer() (*ArticleWarmer, error) {
	return do.Invoke[*ArticleWarmer](a.injector)
}

// Server HTTP 服务
func (a *Application) Server() (*api.Server, error) {
	return do.Invoke[*api.Server](a.injector)
}

// Setup 创建数据访问链路：数据库（含迁移）、Redis、协调器
func (a *Application) Setup() error {
	a.setState(StateSetup)
	if _, err := a.Coordinator(); err != nil {
		return fmt.Errorf("setup cache coordinator failed: %w", err)
	}
	return nil
}

// Run 启动全部组件并阻塞到 ctx 结束或收到退出信号，然后优雅关闭
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(a.cfg.HTTP.ShutdownTimeout)
		return err
	}
	a.WaitShutdown(ctx)
	return a.Shutdown(a.cfg.HTTP.ShutdownTimeout)
}

// Start 依次启动：协调器 -> 消费者 -> 预热 -> HTTP
func (a *Application) Start(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}

	if err := a.startIngest(ctx); err != nil {
		return err
	}

	if a.cfg.Warmer.Enabled {
		w, err := a.Warmer()
		if err != nil {
			return fmt.Errorf("create warmer failed: %w", err)
		}
		if err := w.Start(a.ctx); err != nil {
			return fmt.Errorf("start warmer failed: %w", err)
		}
	}

	server, err := a.Server()
	if err != nil {
		return fmt.Errorf("create http server failed: %w", err)
	}
	if err := server.Start(); err != nil {
		return err
	}

	a.setState(StateRunning)
	a.logger.InfoCtx(ctx, "articlecache started",
		zap.String("version", a.cfg.App.Version),
		zap.String("addr", server.Addr().String()))
	return nil
}

// startIngest 订阅已发布文章，未启用 kafka 或消费者时跳过
func (a *Application) startIngest(ctx context.Context) error {
	km, err := do.Invoke[*kafka.Manager](a.injector)
	if err != nil {
		return fmt.Errorf("create kafka manager failed: %w", err)
	}
	if km == nil || !a.cfg.Kafka.Consumer.Enabled {
		return nil
	}

	if err := km.Connect(ctx); err != nil {
		return err
	}
	group, err := km.NewConsumerGroup()
	if err != nil {
		return err
	}

	coord, err := a.Coordinator()
	if err != nil {
		return err
	}
	repo, err := a.Repository()
	if err != nil {
		return err
	}
	handler, err := article.NewIngestHandler(coord, repo.Regions(), a.cfg.Ingest.DefaultRegion, a.logMgr.GetLogger("ingest"))
	if err != nil {
		return err
	}
	return group.Run(a.ctx, handler)
}

// WaitShutdown 等待 SIGINT/SIGTERM 或 ctx 结束
// 第一次信号触发优雅关闭，第二次信号立即退出
func (a *Application) WaitShutdown(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.logger.Info("Shutdown signal received (graceful shutdown)", zap.String("signal", sig.String()))
		a.cancel()

		go func() {
			sig := <-quit
			a.logger.Warn("Second signal received, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		}()

	case <-ctx.Done():
		signal.Stop(quit)
		a.logger.Debug("Context cancelled, starting graceful shutdown")
	case <-a.ctx.Done():
		signal.Stop(quit)
		a.logger.Debug("Application cancelled, starting graceful shutdown")
	}
}

// Shutdown 按创建的逆序关闭组件，单个组件失败不影响其余组件
func (a *Application) Shutdown(timeout time.Duration) error {
	a.mu.Lock()
	if a.state == StateStopped || a.state == StateStopping {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	a.setState(StateStopping)

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.mu.Lock()
	hooks := a.shutdowns
	a.shutdowns = nil
	a.mu.Unlock()

	var errs []error
	for idx := len(hooks) - 1; idx >= 0; idx-- {
		hook := hooks[idx]
		if err := hook.fn(ctx); err != nil {
			a.logger.Error("component shutdown failed", zap.String("component", hook.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
			continue
		}
		a.logger.Debug("component stopped", zap.String("component", hook.name))
	}

	a.setState(StateStopped)
	a.logger.Info("articlecache stopped")
	a.logMgr.CloseAll()
	return errors.Join(errs...)
}

// Warm 执行一次预热（不启动定时任务）
func (a *Application) Warm(ctx context.Context) (warmer.CycleReport, error) {
	w, err := a.Warmer()
	if err != nil {
		return warmer.CycleReport{}, err
	}
	return w.RunCycle(ctx), nil
}

// Snapshots 读取共享命中计数
func (a *Application) Snapshots(ctx context.Context, domains ...string) ([]metrics.Snapshot, error) {
	hm, err := do.Invoke[*metrics.RedisHitMiss](a.injector)
	if err != nil {
		return nil, err
	}
	if hm == nil {
		return nil, metrics.ErrCounterRead.WithMsg("shared counters unavailable: redis not connected")
	}
	if len(domains) == 0 {
		domains = a.cfg.Metrics.Domains
	}
	return hm.Snapshots(ctx, domains...)
}

// Publish 发布文章到消费者订阅的第一个 Topic，消息键为区域
func (a *Application) Publish(ctx context.Context, draft article.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	km, err := do.Invoke[*kafka.Manager](a.injector)
	if err != nil {
		return err
	}
	if km == nil || !a.cfg.Kafka.Producer.Enabled {
		return ErrKafkaDisabled
	}
	if err := km.Connect(ctx); err != nil {
		return err
	}

	topic := kafka.DefaultArticleTopic
	if topics := a.cfg.Kafka.Consumer.Topics; len(topics) > 0 {
		topic = topics[0]
	}
	if err := km.PublishJSON(ctx, topic, draft.Region, draft); err != nil {
		return fmt.Errorf("publish article failed: %w", err)
	}

	a.logger.InfoCtx(ctx, "article published",
		zap.String("topic", topic),
		zap.String("region", draft.Region),
		zap.String("title", draft.Title))
	return nil
}
