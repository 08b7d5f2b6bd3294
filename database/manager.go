package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerFactory GORM Logger factory function type
type GormLoggerFactory func(name string, cfg Config) gormlogger.Interface

// NewGormLoggerFactory builds per-instance GORM loggers on top of log
func NewGormLoggerFactory(log *logger.CtxZapLogger) GormLoggerFactory {
	return func(name string, cfg Config) gormlogger.Interface {
		if !cfg.EnableLog {
			return gormlogger.Discard
		}
		level := gormlogger.Warn
		if cfg.EnableAudit {
			level = gormlogger.Info
		}
		return logger.NewGormLogger(log.With(zap.String("db", name)), logger.GormLoggerConfig{
			SlowThreshold: cfg.SlowThreshold,
			LogLevel:      level,
			EnableAudit:   cfg.EnableAudit,
		})
	}
}

// Manager database manager, one instance per partition name
type Manager struct {
	instances     map[string]*gorm.DB
	configs       map[string]Config
	loggerFactory GormLoggerFactory
	logger        *logger.CtxZapLogger
	mu            sync.RWMutex
}

// NewManager opens every configured database
// loggerFactory may be nil (silent GORM logging); log must not be nil
func NewManager(configs map[string]Config, loggerFactory GormLoggerFactory, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		instances:     make(map[string]*gorm.DB),
		configs:       make(map[string]Config),
		loggerFactory: loggerFactory,
		logger:        log,
	}

	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		db, err := m.openDB(name, cfg)
		if err != nil {
			_ = m.Close()
			return nil, ErrConnectionFailed.WithMsgf("failed to open database %s", name).Wrap(err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		m.instances[name] = db
		m.configs[name] = cfg

		m.logger.Debug("Database connection successful",
			zap.String("name", name),
			zap.String("driver", cfg.Driver))
	}

	return m, nil
}

// openDB Open database connection
func (m *Manager) openDB(name string, cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, ErrUnsupportedDriver.WithMsgf("unsupported driver: %s", cfg.Driver)
	}

	gormLogger := gormlogger.Discard
	if m.loggerFactory != nil {
		gormLogger = m.loggerFactory(name, cfg)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// DB returns the named instance, nil when absent
func (m *Manager) DB(name string) *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[name]
}

// Names returns the configured instance names, sorted
// With one database per region these are the partition names
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.instances))
	for name := range m.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the effective configuration of the named instance
func (m *Manager) Config(name string) (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[name]
	return cfg, ok
}

// Use registers a GORM plugin on every instance
func (m *Manager) Use(newPlugin func(name string) gorm.Plugin) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, db := range m.instances {
		if err := db.Use(newPlugin(name)); err != nil {
			return fmt.Errorf("failed to register plugin for %s: %w", name, err)
		}
	}
	return nil
}

// AutoMigrate migrates models on every instance with auto_migrate enabled
func (m *Manager) AutoMigrate(ctx context.Context, models ...any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, db := range m.instances {
		if !m.configs[name].AutoMigrate {
			continue
		}
		if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto migrate %s: %w", name, err)
		}
		m.logger.DebugCtx(ctx, "Database migrated", zap.String("name", name))
	}
	return nil
}

// Ping check all database connections
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("ping failed for %s: %w", name, err)
		}
	}
	return nil
}

// Stats Get database connection pool statistics
func (m *Manager) Stats(name string) (sql.DBStats, error) {
	db := m.DB(name)
	if db == nil {
		return sql.DBStats{}, ErrInstanceNotFound.WithMsgf("database %s not found", name)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

// Close all database connections
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sqlDB.Close(); err != nil {
			m.logger.Error("Failed to close database connection",
				zap.String("name", name),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("Database connection closed", zap.String("name", name))
	}
	m.instances = make(map[string]*gorm.DB)
	return errors.Join(errs...)
}

// Shutdown implements do.Shutdowner
func (m *Manager) Shutdown() error {
	return m.Close()
}
