package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/feed"
	"github.com/IshaanNene/stockpulse/internal/observability"
	"github.com/IshaanNene/stockpulse/internal/scroll"
	"github.com/IshaanNene/stockpulse/internal/types"
)

// Sink receives each non-empty filtered batch.
type Sink interface {
	Append(ctx context.Context, symbol string, records types.Batch) error
}

// Feed is what one collection run reads from and scrolls.
type Feed struct {
	Reader   feed.PageReader
	Scroller scroll.Scroller
	// Snapshot returns the HTML behind the last read, for mismatch dumps. Optional.
	Snapshot func() string
}

// Collector runs the incremental read loop for one symbol at a time.
type Collector struct {
	cfg      config.CollectorConfig
	strategy *scroll.Strategy
	aligner  *feed.Aligner
	sink     Sink
	dumper   *feed.PageDumper
	metrics  *observability.Metrics
	now      func() time.Time
	sleep    scroll.SleepFunc
	logger   *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithDumper keeps compressed snapshots of mismatched pages.
func WithDumper(d *feed.PageDumper) Option {
	return func(c *Collector) { c.dumper = d }
}

// WithMetrics records iteration counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithClock replaces the wall clock and the pause function.
func WithClock(now func() time.Time, sleep scroll.SleepFunc) Option {
	return func(c *Collector) {
		c.now = now
		c.sleep = sleep
	}
}

// New creates a collector.
func New(cfg config.CollectorConfig, strategy *scroll.Strategy, sink Sink, logger *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		cfg:      cfg,
		strategy: strategy,
		aligner:  feed.NewAligner(logger),
		sink:     sink,
		now:      time.Now,
		sleep:    scroll.Sleep,
		logger:   logger.With("component", "collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run collects symbol's feed until the iteration budget, the time budget or
// ctx ends it. Limits are checked only between iterations; an iteration in
// flight always completes. Iteration failures are logged and counted and
// never end the run.
func (c *Collector) Run(ctx context.Context, symbol string, f Feed) Summary {
	start := c.now()
	sum := Summary{Symbol: symbol, State: Starting}
	logger := c.logger.With("symbol", symbol)

	if _, err := scroll.Apply(ctx, f.Scroller, c.strategy.Warmup(), c.sleep); err != nil {
		logger.Warn("warm-up scroll failed", "error", err)
	}

	sum.State = Collecting
	logger.Info("collection started",
		"max_iterations", c.cfg.MaxIterations,
		"time_budget", c.cfg.TimeBudget,
	)

	var previous types.Batch
	for !sum.State.Terminal() {
		switch {
		case sum.Iterations >= c.cfg.MaxIterations:
			sum.State = BudgetExceeded
			continue
		case c.now().Sub(start) > c.cfg.TimeBudget:
			sum.State = TimeExceeded
			continue
		case ctx.Err() != nil:
			sum.State = Done
			continue
		}

		if err := c.iterate(ctx, symbol, sum.Iterations, f, &previous, &sum); err != nil {
			sum.Failed++
			c.count(func(m *observability.Metrics) { m.IterationsFailed.Add(1) })
			logger.Warn("iteration failed", "iteration", sum.Iterations, "error", err)
		}
		sum.Iterations++
		c.count(func(m *observability.Metrics) { m.Iterations.Add(1) })

		_ = c.sleep(ctx, c.cfg.IterationPause)
	}

	sum.Elapsed = c.now().Sub(start)
	logger.Info("collection finished",
		"state", sum.State,
		"iterations", sum.Iterations,
		"emitted", sum.Emitted,
		"duplicates", sum.Duplicates,
		"mismatches", sum.Mismatches,
		"failed", sum.Failed,
		"sink_failures", sum.SinkFailures,
		"lost", sum.Lost,
		"elapsed", sum.Elapsed,
	)
	return sum
}

// iterate performs one read, filter, emit and scroll step. previous is
// replaced by the unfiltered batch as soon as the page is aligned.
func (c *Collector) iterate(ctx context.Context, symbol string, iteration int, f Feed, previous *types.Batch, sum *Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	page, err := f.Reader.ReadPage(ctx)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	res := c.aligner.Align(page)
	sum.Skipped += res.Skipped
	c.count(func(m *observability.Metrics) { m.RecordsSkipped.Add(int64(res.Skipped)) })
	if res.Status == feed.Mismatch {
		sum.Mismatches++
		c.count(func(m *observability.Metrics) { m.PagesMismatched.Add(1) })
		c.dump(symbol, iteration, f)
	}

	_ = c.sleep(ctx, c.cfg.ReadPause)

	current := res.Records
	kept, dropped := FilterSeen(current, *previous)
	sum.Duplicates += dropped
	c.count(func(m *observability.Metrics) { m.DuplicatesDropped.Add(int64(dropped)) })

	if len(kept) > 0 {
		if err := c.sink.Append(ctx, symbol, kept.WithStock(symbol)); err != nil {
			sum.SinkFailures++
			sum.Lost += len(kept)
			c.count(func(m *observability.Metrics) { m.SinkFailures.Add(1) })
		} else {
			sum.Emitted += len(kept)
			c.count(func(m *observability.Metrics) { m.RecordsEmitted.Add(int64(len(kept))) })
		}
	}
	*previous = current

	if _, err := scroll.Apply(ctx, f.Scroller, c.strategy.Plan(iteration), c.sleep); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil // pause cut short by shutdown
		}
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (c *Collector) dump(symbol string, iteration int, f Feed) {
	if c.dumper == nil || f.Snapshot == nil {
		return
	}
	path, err := c.dumper.Dump(symbol, iteration, f.Snapshot())
	if err != nil {
		c.logger.Warn("page dump failed", "symbol", symbol, "error", err)
		return
	}
	c.logger.Info("mismatched page dumped", "symbol", symbol, "iteration", iteration, "path", path)
}

func (c *Collector) count(fn func(*observability.Metrics)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}
