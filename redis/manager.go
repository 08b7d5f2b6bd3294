package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager for Redis (multiple named instances, standalone or cluster)
type Manager struct {
	clients map[string]redis.UniversalClient
	configs map[string]Config
	logger  *logger.CtxZapLogger
	mu      sync.RWMutex
}

// NewManager creates clients for every configured instance
// go-redis 按需拨号，这里不做连通性检查；启动时由调用方 Ping 并决定如何处理
// log must not be nil
func NewManager(configs map[string]Config, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		clients: make(map[string]redis.UniversalClient),
		configs: make(map[string]Config),
		logger:  log,
	}
	for name, cfg := range configs {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}
		m.clients[name] = newClient(cfg)
		m.configs[name] = cfg

		m.logger.Debug("redis client created",
			zap.String("name", name),
			zap.String("mode", cfg.Mode),
			zap.Strings("addrs", cfg.Addrs))
	}
	return m, nil
}

// NewManagerWithClient registers an existing client under name (tests, embedded servers)
func NewManagerWithClient(name string, client redis.UniversalClient, log *logger.CtxZapLogger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		clients: map[string]redis.UniversalClient{name: client},
		configs: map[string]Config{},
		logger:  log,
	}
}

func newClient(cfg Config) redis.UniversalClient {
	if cfg.Mode == "cluster" {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addrs,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addrs[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Client returns the named client, nil when absent
func (m *Manager) Client(name string) redis.UniversalClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[name]
}

// Names returns the configured instance names, sorted
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddHook installs a go-redis hook on every client
func (m *Manager) AddHook(newHook func(instance string) redis.Hook) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, client := range m.clients {
		client.AddHook(newHook(name))
	}
}

// Ping check all connections
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, client := range m.clients {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping %s failed: %w", name, err)
		}
	}
	return nil
}

// Close closes all clients
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	m.clients = make(map[string]redis.UniversalClient)
	return errors.Join(errs...)
}

// Shutdown implements do.Shutdowner
func (m *Manager) Shutdown() error {
	m.logger.Debug("Closing Redis connections")
	return m.Close()
}
