package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IshaanNene/stockpulse/internal/feed"
	"github.com/IshaanNene/stockpulse/internal/observability"
	"github.com/IshaanNene/stockpulse/internal/scroll"
	"github.com/IshaanNene/stockpulse/internal/types"
)

// Session is an open feed for one symbol.
type Session interface {
	Reader() feed.PageReader
	Scroller() scroll.Scroller
	Snapshot() string
	Close()
}

// SessionOpener acquires a fresh Session per symbol.
type SessionOpener interface {
	Open(ctx context.Context, symbol string) (Session, error)
}

// OpenFunc adapts a function to SessionOpener.
type OpenFunc func(ctx context.Context, symbol string) (Session, error)

// Open implements SessionOpener.
func (f OpenFunc) Open(ctx context.Context, symbol string) (Session, error) {
	return f(ctx, symbol)
}

// Runner collects a list of symbols strictly one after another.
type Runner struct {
	opener      SessionOpener
	collector   *Collector
	symbolPause time.Duration
	sleep       scroll.SleepFunc
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewRunner creates a runner. symbolPause is waited after each symbol's
// session is released.
func NewRunner(opener SessionOpener, collector *Collector, symbolPause time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		opener:      opener,
		collector:   collector,
		symbolPause: symbolPause,
		sleep:       collector.sleep,
		metrics:     collector.metrics,
		logger:      logger.With("component", "runner"),
	}
}

// Run processes symbols in order. A symbol whose session fails is recorded
// and skipped. Cancelling ctx lets the current symbol finish its iteration and
// starts no further symbols.
func (r *Runner) Run(ctx context.Context, symbols []string) ([]Summary, error) {
	if len(symbols) == 0 {
		return nil, types.ErrNoSymbols
	}

	summaries := make([]Summary, 0, len(symbols))
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			r.logger.Info("run cancelled", "remaining", len(symbols)-i)
			break
		}

		sum := r.runSymbol(ctx, symbol)
		summaries = append(summaries, sum)

		if i < len(symbols)-1 {
			_ = r.sleep(ctx, r.symbolPause)
		}
	}
	return summaries, nil
}

// runSymbol owns the session for one symbol and releases it on every path.
func (r *Runner) runSymbol(ctx context.Context, symbol string) Summary {
	if r.metrics != nil {
		r.metrics.SymbolsStarted.Add(1)
	}

	session, err := r.opener.Open(ctx, symbol)
	if err != nil {
		var se *types.SessionError
		if !errors.As(err, &se) {
			err = &types.SessionError{Symbol: symbol, Stage: "launch", Err: err}
		}
		if r.metrics != nil {
			r.metrics.SessionsFailed.Add(1)
		}
		r.logger.Error("feed session failed, skipping symbol", "symbol", symbol, "error", err)
		return Summary{Symbol: symbol, State: Starting, Err: err}
	}
	defer session.Close()

	sum := r.collector.Run(ctx, symbol, Feed{
		Reader:   session.Reader(),
		Scroller: session.Scroller(),
		Snapshot: session.Snapshot,
	})
	if r.metrics != nil {
		r.metrics.SymbolsCompleted.Add(1)
	}
	return sum
}
