package database

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

const metricsStartKey = "metrics:start_time"

// DBMetrics 数据库层指标收集器（按实例记录查询次数、耗时与慢查询）
type DBMetrics struct {
	queriesTotal  metric.Int64Counter
	queryDuration metric.Float64Histogram
	slowQueries   metric.Int64Counter
	slowThreshold time.Duration
}

// NewDBMetrics 在 meter 上注册数据库指标
func NewDBMetrics(meter metric.Meter, slowThreshold time.Duration) (*DBMetrics, error) {
	queriesTotal, err := meter.Int64Counter(
		"db_queries_total",
		metric.WithDescription("数据库查询总数"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("数据库查询耗时分布"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	slowQueries, err := meter.Int64Counter(
		"db_slow_queries_total",
		metric.WithDescription("慢查询总数"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	return &DBMetrics{
		queriesTotal:  queriesTotal,
		queryDuration: queryDuration,
		slowQueries:   slowQueries,
		slowThreshold: slowThreshold,
	}, nil
}

// Plugin 返回绑定到实例名的 GORM 插件（配合 Manager.Use）
func (m *DBMetrics) Plugin(instance string) gorm.Plugin {
	return &metricsPlugin{metrics: m, instance: instance}
}

type metricsPlugin struct {
	metrics  *DBMetrics
	instance string
}

func (p *metricsPlugin) Name() string {
	return "db-metrics:" + p.instance
}

func (p *metricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}

	for _, r := range registrations {
		op := r.op
		if err := r.before("metrics:before_"+op, p.before); err != nil {
			return err
		}
		if err := r.after("metrics:after_"+op, func(db *gorm.DB) { p.after(db, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (p *metricsPlugin) before(db *gorm.DB) {
	db.InstanceSet(metricsStartKey, time.Now())
}

func (p *metricsPlugin) after(db *gorm.DB, operation string) {
	v, ok := db.InstanceGet(metricsStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	status := "ok"
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		status = "error"
	}

	attrs := metric.WithAttributes(
		attribute.String("instance", p.instance),
		attribute.String("operation", operation),
		attribute.String("table", table),
		attribute.String("status", status),
	)
	ctx := db.Statement.Context
	p.metrics.queriesTotal.Add(ctx, 1, attrs)
	p.metrics.queryDuration.Record(ctx, elapsed.Seconds(), attrs)
	if p.metrics.slowThreshold > 0 && elapsed >= p.metrics.slowThreshold {
		p.metrics.slowQueries.Add(ctx, 1, attrs)
	}
}
