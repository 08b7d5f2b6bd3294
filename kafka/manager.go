package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/KOMKZ/go-yogan-articlecache/retry"
	"go.uber.org/zap"
)

// ClientFactory creates a sarama client
type ClientFactory func(brokers []string, cfg *sarama.Config) (sarama.Client, error)

// Manager Kafka connection manager
type Manager struct {
	config       Config
	saramaConfig *sarama.Config
	logger       *logger.CtxZapLogger
	newClient    ClientFactory
	retryOpts    []retry.Option

	client    sarama.Client
	producer  *SyncProducer
	consumers []*ConsumerGroup
	mu        sync.RWMutex
	closed    bool
}

// ManagerOption 管理器选项
type ManagerOption func(*Manager)

// WithClientFactory 替换客户端创建方式（测试用）
func WithClientFactory(f ClientFactory) ManagerOption {
	return func(m *Manager) {
		if f != nil {
			m.newClient = f
		}
	}
}

// WithRetryOptions 替换连接重试策略，默认 retry.ConnectDefaults
func WithRetryOptions(opts ...retry.Option) ManagerOption {
	return func(m *Manager) {
		m.retryOpts = opts
	}
}

// NewManager validates cfg and builds the sarama configuration; no network I/O
func NewManager(cfg Config, log *logger.CtxZapLogger, opts ...ManagerOption) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}

	saramaCfg, err := BuildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		config:       cfg,
		saramaConfig: saramaCfg,
		logger:       log,
		newClient:    sarama.NewClient,
		retryOpts:    retry.ConnectDefaults(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// BuildSaramaConfig converts Config into a sarama configuration
func BuildSaramaConfig(cfg Config) (*sarama.Config, error) {
	saramaCfg := sarama.NewConfig()

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("parse kafka version failed: %w", err)
	}
	saramaCfg.Version = version
	saramaCfg.ClientID = cfg.ClientID

	// SyncProducer requires both
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true

	switch cfg.Producer.RequiredAcks {
	case 0:
		saramaCfg.Producer.RequiredAcks = sarama.NoResponse
	case -1:
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	default:
		saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	}
	if cfg.Producer.Timeout > 0 {
		saramaCfg.Producer.Timeout = cfg.Producer.Timeout
	}
	saramaCfg.Producer.Retry.Max = cfg.Producer.RetryMax

	switch cfg.Producer.Compression {
	case "gzip":
		saramaCfg.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		saramaCfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		saramaCfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		saramaCfg.Producer.Compression = sarama.CompressionZSTD
	default:
		saramaCfg.Producer.Compression = sarama.CompressionNone
	}

	saramaCfg.Consumer.Return.Errors = true
	if cfg.Consumer.OffsetInitial == -2 {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if cfg.Consumer.SessionTimeout > 0 {
		saramaCfg.Consumer.Group.Session.Timeout = cfg.Consumer.SessionTimeout
	}
	if cfg.Consumer.HeartbeatInterval > 0 {
		saramaCfg.Consumer.Group.Heartbeat.Interval = cfg.Consumer.HeartbeatInterval
	}

	switch cfg.Consumer.RebalanceStrategy {
	case "roundrobin":
		saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	case "sticky":
		saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	default:
		saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	}

	if cfg.SASL != nil && cfg.SASL.Enabled {
		applySASL(saramaCfg, cfg.SASL)
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		saramaCfg.Net.TLS.Enable = true
		saramaCfg.Net.TLS.Config = &tls.Config{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		}
	}

	return saramaCfg, nil
}

// Connect dials the cluster with back-off and creates the producer when enabled
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("manager is closed")
	}
	if m.client != nil {
		return nil
	}

	opts := append([]retry.Option{
		retry.OnRetry(func(attempt int, err error, next time.Duration) {
			m.logger.WarnCtx(ctx, "kafka connect failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	}, m.retryOpts...)

	client, err := retry.DoWithData(ctx, func(context.Context) (sarama.Client, error) {
		client, err := m.newClient(m.config.Brokers, m.saramaConfig)
		if err != nil {
			return nil, err
		}
		if len(client.Brokers()) == 0 {
			_ = client.Close()
			return nil, fmt.Errorf("no brokers available")
		}
		return client, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	m.client = client

	if m.config.Producer.Enabled {
		producer, err := sarama.NewSyncProducerFromClient(client)
		if err != nil {
			return fmt.Errorf("create producer failed: %w", err)
		}
		m.producer = NewSyncProducer(producer, m.logger)
		m.logger.DebugCtx(ctx, "producer created")
	}

	m.logger.InfoCtx(ctx, "kafka manager connected", zap.Strings("brokers", m.config.Brokers))
	return nil
}

// Producer returns the producer, nil when disabled or not connected
func (m *Manager) Producer() *SyncProducer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.producer
}

// NewConsumerGroup creates the configured consumer group on the shared client
func (m *Manager) NewConsumerGroup() (*ConsumerGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("manager is closed")
	}
	if m.client == nil {
		return nil, fmt.Errorf("kafka manager not connected")
	}

	group, err := sarama.NewConsumerGroupFromClient(m.config.Consumer.GroupID, m.client)
	if err != nil {
		return nil, fmt.Errorf("create consumer group failed: %w", err)
	}

	consumer := NewConsumerGroup(group, m.config.Consumer, m.logger)
	m.consumers = append(m.consumers, consumer)
	return consumer, nil
}

// Ping refreshes cluster metadata
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	client, closed := m.client, m.closed
	m.mu.RUnlock()

	if closed {
		return fmt.Errorf("manager is closed")
	}
	if client == nil {
		return fmt.Errorf("kafka manager not connected")
	}

	done := make(chan error, 1)
	go func() {
		done <- client.RefreshMetadata()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("refresh metadata failed: %w", err)
		}
		return nil
	}
}

// Config returns the effective configuration
func (m *Manager) Config() Config {
	return m.config
}

// Close stops consumers then closes the producer and client
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error

	for _, consumer := range m.consumers {
		if err := consumer.Stop(); err != nil {
			m.logger.Error("close consumer failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if m.producer != nil {
		if err := m.producer.Close(); err != nil {
			m.logger.Error("close producer failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if m.client != nil && !m.client.Closed() {
		if err := m.client.Close(); err != nil {
			m.logger.Error("close client failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close manager with %d errors", len(errs))
	}

	m.logger.Info("kafka manager closed")
	return nil
}

// Shutdown implements do.Shutdowner
func (m *Manager) Shutdown() error {
	return m.Close()
}
