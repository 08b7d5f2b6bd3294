package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CtxZapLogger Context-Aware 的 Zap Logger 包装器
// module 在创建时绑定，使用时只需传递 ctx
type CtxZapLogger struct {
	base   *zap.Logger
	module string
	config *ManagerConfig
}

// Wrap 将任意 *zap.Logger 包装为 CtxZapLogger（测试或第三方集成使用）
// 不注入 app_name，TraceID 使用默认 key 提取
func Wrap(base *zap.Logger) *CtxZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &CtxZapLogger{base: base}
}

// Nop 返回丢弃所有输出的 Logger
func Nop() *CtxZapLogger {
	return Wrap(zap.NewNop())
}

// InfoCtx 记录 Info 级别日志（自动提取 TraceID）
func (l *CtxZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Info(msg, l.enrichFields(ctx, fields)...)
}

// Info 不需要 context 的便捷方法
func (l *CtxZapLogger) Info(msg string, fields ...zap.Field) {
	l.InfoCtx(context.Background(), msg, fields...)
}

// ErrorCtx 记录 Error 级别日志
func (l *CtxZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Error(msg, l.enrichFields(ctx, fields)...)
}

// Error 不需要 context 的便捷方法
func (l *CtxZapLogger) Error(msg string, fields ...zap.Field) {
	l.ErrorCtx(context.Background(), msg, fields...)
}

// DebugCtx 记录 Debug 级别日志
func (l *CtxZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Debug(msg, l.enrichFields(ctx, fields)...)
}

// Debug 不需要 context 的便捷方法
func (l *CtxZapLogger) Debug(msg string, fields ...zap.Field) {
	l.DebugCtx(context.Background(), msg, fields...)
}

// WarnCtx 记录 Warn 级别日志
func (l *CtxZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Warn(msg, l.enrichFields(ctx, fields)...)
}

// Warn 不需要 context 的便捷方法
func (l *CtxZapLogger) Warn(msg string, fields ...zap.Field) {
	l.WarnCtx(context.Background(), msg, fields...)
}

// LogCtx 按动态级别记录
func (l *CtxZapLogger) LogCtx(ctx context.Context, lvl zapcore.Level, msg string, fields ...zap.Field) {
	l.base.Log(lvl, msg, l.enrichFields(ctx, fields)...)
}

// With 返回带有预设字段的新 Logger
//
//	partitionLogger := log.With(zap.String("partition", "Europe"))
//	partitionLogger.InfoCtx(ctx, "warming partition")
func (l *CtxZapLogger) With(fields ...zap.Field) *CtxZapLogger {
	return &CtxZapLogger{
		base:   l.base.With(fields...),
		module: l.module,
		config: l.config,
	}
}

// Module 返回绑定的模块名
func (l *CtxZapLogger) Module() string {
	return l.module
}

// GetZapLogger 获取底层的 *zap.Logger（用于第三方库集成）
func (l *CtxZapLogger) GetZapLogger() *zap.Logger {
	return l.base
}

// enrichFields 自动添加 app_name 和 TraceID
func (l *CtxZapLogger) enrichFields(ctx context.Context, fields []zap.Field) []zap.Field {
	enriched := make([]zap.Field, 0, len(fields)+2)

	if l.config != nil {
		enriched = append(enriched, zap.String("app_name", l.config.AppName))
	}

	if l.config == nil || l.config.EnableTraceID {
		if traceID := extractTraceIDFromContext(ctx, l.config); traceID != "" {
			fieldName := "trace_id"
			if l.config != nil && l.config.TraceIDFieldName != "" {
				fieldName = l.config.TraceIDFieldName
			}
			enriched = append(enriched, zap.String(fieldName, traceID))
		}
	}

	return append(enriched, fields...)
}

// extractTraceIDFromContext 优先级：OpenTelemetry Span > 配置的 Context Key > "trace_id"
func extractTraceIDFromContext(ctx context.Context, cfg *ManagerConfig) string {
	if ctx == nil {
		return ""
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}

	key := "trace_id"
	if cfg != nil && cfg.TraceIDKey != "" {
		key = cfg.TraceIDKey
	}
	if val, ok := ctx.Value(traceKey(key)).(string); ok {
		return val
	}
	return ""
}

// traceKey context key type for trace IDs set by WithTraceID
type traceKey string

// WithTraceID 在 ctx 中设置 TraceID（未接入 OpenTelemetry 时使用，如 HTTP 请求头透传）
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey("trace_id"), traceID)
}
