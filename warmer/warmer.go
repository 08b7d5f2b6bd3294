// Package warmer periodically pulls recently created entities of every
// partition through the cache read path so both tiers stay populated.
package warmer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Source lists entities created at or after since
type Source[E cache.Entity] interface {
	FindRecent(ctx context.Context, partition string, since time.Time) ([]E, error)
}

// Target read path that populates the tiers as a side effect
type Target[E cache.Entity] interface {
	Kind() string
	Get(ctx context.Context, partition string, id int64) (E, bool, error)
}

// PartitionReport outcome of one partition
type PartitionReport struct {
	Partition string        `json:"partition"`
	Found     int           `json:"found"`
	Warmed    int           `json:"warmed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// CycleReport outcome of one warm-up cycle
type CycleReport struct {
	Started    time.Time         `json:"started"`
	Partitions []PartitionReport `json:"partitions"`
	// Cancelled the cycle stopped before every partition was attempted
	Cancelled bool `json:"cancelled"`
}

// Failed partitions that returned an error
func (r CycleReport) Failed() []string {
	var out []string
	for _, p := range r.Partitions {
		if p.Err != nil {
			out = append(out, p.Partition)
		}
	}
	return out
}

// Option warmer option
type Option func(*options)

type options struct {
	logger *logger.CtxZapLogger
	now    func() time.Time
}

// WithLogger sets the logger
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithClock injects the time source used for the recency window
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Warmer background warm-up task
type Warmer[E cache.Entity] struct {
	source     Source[E]
	target     Target[E]
	partitions []string
	config     Config
	logger     *logger.CtxZapLogger
	now        func() time.Time
	pool       *ants.Pool

	mu        sync.Mutex
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// NewWarmer creates a warmer over partitions, in iteration order
func NewWarmer[E cache.Entity](source Source[E], target Target[E], partitions []string, cfg Config, opts ...Option) (*Warmer[E], error) {
	if source == nil || target == nil {
		return nil, ErrConfigInvalid.WithMsg("source and target are required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.now == nil {
		o.now = time.Now
	}

	w := &Warmer[E]{
		source:     source,
		target:     target,
		partitions: append([]string(nil), partitions...),
		config:     cfg,
		logger:     o.logger.With(zap.String("kind", target.Kind())),
		now:        o.now,
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p any) {
		w.logger.Error("warm-up worker panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, ErrConfigInvalid.Wrap(err)
	}
	w.pool = pool

	return w, nil
}

// Partitions partitions warmed per cycle
func (w *Warmer[E]) Partitions() []string {
	return append([]string(nil), w.partitions...)
}

// Start schedules RunCycle every Interval, first run immediately.
// Overlapping runs are skipped.
func (w *Warmer[E]) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.scheduler != nil {
		return ErrAlreadyStarted
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler failed: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	_, err = scheduler.NewJob(
		gocron.DurationJob(w.config.Interval),
		gocron.NewTask(func() {
			w.RunCycle(runCtx)
		}),
		gocron.WithName("cache-warmer-"+w.target.Kind()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return fmt.Errorf("schedule warm-up failed: %w", err)
	}

	scheduler.Start()
	w.scheduler = scheduler
	w.cancel = cancel

	w.logger.InfoCtx(ctx, "cache warmer started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("window", w.config.Window),
		zap.Strings("partitions", w.partitions))
	return nil
}

// Stop cancels the running cycle between partitions and waits for it
func (w *Warmer[E]) Stop() error {
	w.mu.Lock()
	scheduler, cancel := w.scheduler, w.cancel
	w.scheduler, w.cancel = nil, nil
	w.mu.Unlock()

	if scheduler == nil {
		return nil
	}

	cancel()
	err := scheduler.Shutdown()
	w.logger.Info("cache warmer stopped")
	return err
}

// Shutdown implements do.Shutdowner
func (w *Warmer[E]) Shutdown() error {
	err := w.Stop()
	w.pool.Release()
	return err
}

// RunCycle warms every partition once. A failing partition is logged and
// skipped; cancelling ctx stops the cycle before the next partition.
func (w *Warmer[E]) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{Started: w.now()}
	since := report.Started.Add(-w.config.Window)

	for _, partition := range w.partitions {
		if ctx.Err() != nil {
			report.Cancelled = true
			w.logger.InfoCtx(ctx, "cache warm-up cancelled",
				zap.Int("partitions_done", len(report.Partitions)))
			break
		}
		report.Partitions = append(report.Partitions, w.warmPartition(ctx, partition, since))
	}

	w.logger.DebugCtx(ctx, "cache warm-up cycle finished",
		zap.Int("partitions", len(report.Partitions)),
		zap.Strings("failed", report.Failed()))
	return report
}

// warmPartition runs detached from ctx cancellation, bounded by PartitionTimeout
func (w *Warmer[E]) warmPartition(ctx context.Context, partition string, since time.Time) (pr PartitionReport) {
	start := time.Now()
	pr.Partition = partition

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.config.PartitionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			pr.Err = ErrPartitionFailed.WithMsgf("partition %s panicked: %v", partition, r)
		}
		pr.Duration = time.Since(start)
		if pr.Err != nil {
			w.logger.ErrorCtx(ctx, "cache warm-up failed for partition",
				zap.String("partition", partition), zap.Error(pr.Err))
			return
		}
		w.logger.DebugCtx(ctx, "partition warmed",
			zap.String("partition", partition),
			zap.Int("found", pr.Found),
			zap.Int("warmed", pr.Warmed),
			zap.Int("failed", pr.Failed),
			zap.Duration("duration", pr.Duration))
	}()

	recent, err := w.source.FindRecent(pctx, partition, since)
	if err != nil {
		pr.Err = ErrPartitionFailed.Wrap(err)
		return pr
	}
	pr.Found = len(recent)

	var (
		wg             sync.WaitGroup
		warmed, failed atomic.Int64
	)
	for _, entity := range recent {
		id := entity.EntityID()
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			if _, _, err := w.target.Get(pctx, partition, id); err != nil {
				failed.Add(1)
				w.logger.WarnCtx(pctx, "warm-up read failed",
					zap.String("partition", partition), zap.Int64("id", id), zap.Error(err))
				return
			}
			warmed.Add(1)
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
		}
	}
	wg.Wait()

	pr.Warmed = int(warmed.Load())
	pr.Failed = int(failed.Load())
	return pr
}
