package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StateChangeFunc 状态变更回调
type StateChangeFunc func(resource string, from, to State)

// Option 管理器选项
type Option func(*Manager)

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithStateChange 订阅状态变更
func WithStateChange(fn StateChangeFunc) Option {
	return func(m *Manager) { m.onChange = append(m.onChange, fn) }
}

// WithMeter 记录 breaker_state_changes_total / breaker_rejections_total
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.meter = meter }
}

// Manager 熔断器管理器（每个资源一个状态机）
type Manager struct {
	config   Config
	states   map[string]*stateManager
	logger   *logger.CtxZapLogger
	now      func() time.Time
	onChange []StateChangeFunc
	meter    metric.Meter

	stateChanges metric.Int64Counter
	rejections   metric.Int64Counter

	mu sync.RWMutex
}

// NewManager 创建熔断器管理器
func NewManager(cfg Config, log *logger.CtxZapLogger, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	m := &Manager{
		config: cfg,
		states: make(map[string]*stateManager),
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.meter != nil {
		var err error
		m.stateChanges, err = m.meter.Int64Counter("breaker_state_changes_total",
			metric.WithDescription("Circuit breaker state transitions"))
		if err != nil {
			return nil, err
		}
		m.rejections, err = m.meter.Int64Counter("breaker_rejections_total",
			metric.WithDescription("Calls rejected by an open circuit breaker"))
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Execute 执行受保护的调用
// ctx 取消导致的失败不计入熔断统计，半开状态下归还试探名额
func (m *Manager) Execute(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	if !m.config.Enabled {
		return fn(ctx)
	}

	sm := m.stateFor(resource)
	changed, from, to, err := sm.Attempt(m.config)
	if changed {
		m.publish(ctx, resource, from, to)
	}
	if err != nil {
		if m.rejections != nil {
			m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
		}
		m.logger.DebugCtx(ctx, "circuit breaker rejected call",
			zap.String("resource", resource),
			zap.String("state", sm.GetState().String()))
		return err
	}

	callErr := fn(ctx)
	switch {
	case callErr == nil:
		if changed, from, to := sm.RecordSuccess(m.config); changed {
			m.publish(ctx, resource, from, to)
		}
	case errors.Is(callErr, context.Canceled):
		// caller gave up; says nothing about the resource
		sm.RecordCancel()
	default:
		if changed, from, to := sm.RecordFailure(m.config); changed {
			m.publish(ctx, resource, from, to)
		}
	}
	return callErr
}

// State 获取资源的当前状态
func (m *Manager) State(resource string) State {
	return m.stateFor(resource).GetState()
}

// Reset 手动重置熔断器状态
func (m *Manager) Reset(resource string) {
	if changed, from, to := m.stateFor(resource).Reset(); changed {
		m.publish(context.Background(), resource, from, to)
	}
}

func (m *Manager) publish(ctx context.Context, resource string, from, to State) {
	m.logger.WarnCtx(ctx, "circuit breaker state changed",
		zap.String("resource", resource),
		zap.String("from", from.String()),
		zap.String("to", to.String()))

	if m.stateChanges != nil {
		m.stateChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resource", resource),
			attribute.String("to", to.String())))
	}
	for _, fn := range m.onChange {
		fn(resource, from, to)
	}
}

// stateFor Get or create the state machine (double-checked)
func (m *Manager) stateFor(resource string) *stateManager {
	m.mu.RLock()
	sm, ok := m.states[resource]
	m.mu.RUnlock()
	if ok {
		return sm
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sm, ok := m.states[resource]; ok {
		return sm
	}
	sm = newStateManager(m.now)
	m.states[resource] = sm
	return sm
}
