package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig 数据库实例的 SQL 日志策略
type GormLoggerConfig struct {
	SlowThreshold time.Duration       // 0 表示不检测慢查询
	LogLevel      gormlogger.LogLevel // Silent 时完全不记录
	EnableAudit   bool                // 每条语句以 debug 记录
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{SlowThreshold: 200 * time.Millisecond, LogLevel: gormlogger.Warn}
}

// GormLogger 实现 gorm logger.Interface，SQL 日志走模块 logger
type GormLogger struct {
	log *CtxZapLogger
	cfg GormLoggerConfig
}

func NewGormLogger(log *CtxZapLogger, cfg GormLoggerConfig) *GormLogger {
	if log == nil {
		log = Nop()
	}
	return &GormLogger{log: log, cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.LogLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.DebugLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.cfg.LogLevel >= min {
		l.log.LogCtx(ctx, lvl, fmt.Sprintf(msg, data...))
	}
}

// Trace 每条 SQL 一次：出错记 error（记录不存在除外），
// 超过阈值记 warn，超过两倍阈值记 error，其余仅在审计模式下记 debug
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	lvl, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}
	switch {
	case err != nil && lvl == zapcore.ErrorLevel:
		fields = append(fields, zap.Error(err))
	case lvl != zapcore.DebugLevel:
		fields = append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))
	}
	l.log.LogCtx(ctx, lvl, msg, fields...)
}

func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	slow := l.cfg.SlowThreshold
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.cfg.LogLevel >= gormlogger.Error:
		return zapcore.ErrorLevel, "SQL 执行错误", true
	case err == nil && slow > 0 && elapsed > 2*slow && l.cfg.LogLevel >= gormlogger.Warn:
		return zapcore.ErrorLevel, "严重慢查询", true
	case err == nil && slow > 0 && elapsed > slow && l.cfg.LogLevel >= gormlogger.Warn:
		return zapcore.WarnLevel, "慢查询检测", true
	case l.cfg.EnableAudit && l.cfg.LogLevel >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL 执行", true
	}
	return zapcore.DebugLevel, "", false
}
