package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CommandMetrics records per-command counters and latency for every client
type CommandMetrics struct {
	commandsTotal   metric.Int64Counter
	errorsTotal     metric.Int64Counter
	commandDuration metric.Float64Histogram
}

// NewCommandMetrics registers the redis instruments on meter
func NewCommandMetrics(meter metric.Meter) (*CommandMetrics, error) {
	m := &CommandMetrics{}
	var err error

	m.commandsTotal, err = meter.Int64Counter(
		"redis_commands_total",
		metric.WithDescription("Total number of Redis commands executed"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	m.errorsTotal, err = meter.Int64Counter(
		"redis_errors_total",
		metric.WithDescription("Total number of Redis errors (redis.Nil excluded)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.commandDuration, err = meter.Float64Histogram(
		"redis_command_duration_seconds",
		metric.WithDescription("Redis command duration distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Hook returns a go-redis hook bound to instance
func (m *CommandMetrics) Hook(instance string) redis.Hook {
	return &metricsHook{metrics: m, instance: instance}
}

func (m *CommandMetrics) record(ctx context.Context, instance, command string, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("instance", instance),
		attribute.String("command", command),
	)
	m.commandsTotal.Add(ctx, 1, attrs)
	m.commandDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil && !errors.Is(err, redis.Nil) {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

// metricsHook implements redis.Hook
type metricsHook struct {
	metrics  *CommandMetrics
	instance string
}

func (h *metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.metrics.record(ctx, h.instance, cmd.Name(), time.Since(start), err)
		return err
	}
}

func (h *metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		if len(cmds) == 0 {
			return err
		}
		per := time.Since(start) / time.Duration(len(cmds))
		for _, cmd := range cmds {
			h.metrics.record(ctx, h.instance, cmd.Name(), per, cmd.Err())
		}
		return err
	}
}
