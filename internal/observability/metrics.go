package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for a collection run.
type Metrics struct {
	// Symbol metrics
	SymbolsStarted   atomic.Int64
	SymbolsCompleted atomic.Int64
	SessionsFailed   atomic.Int64

	// Iteration metrics
	Iterations       atomic.Int64
	IterationsFailed atomic.Int64
	PagesMismatched  atomic.Int64
	RecordsSkipped   atomic.Int64

	// Record metrics
	RecordsEmitted    atomic.Int64
	DuplicatesDropped atomic.Int64
	SinkFailures      atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type sample struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) samples() []sample {
	return []sample{
		{"stockpulse_symbols_started_total", "Symbols whose collection started", m.SymbolsStarted.Load()},
		{"stockpulse_symbols_completed_total", "Symbols whose collection finished", m.SymbolsCompleted.Load()},
		{"stockpulse_sessions_failed_total", "Feed sessions that failed to open", m.SessionsFailed.Load()},
		{"stockpulse_iterations_total", "Collector iterations run", m.Iterations.Load()},
		{"stockpulse_iterations_failed_total", "Collector iterations that failed", m.IterationsFailed.Load()},
		{"stockpulse_pages_mismatched_total", "Page reads whose element counts did not align", m.PagesMismatched.Load()},
		{"stockpulse_records_skipped_total", "Records skipped on failed lookups", m.RecordsSkipped.Load()},
		{"stockpulse_records_emitted_total", "Records forwarded to the sink", m.RecordsEmitted.Load()},
		{"stockpulse_duplicates_dropped_total", "Records dropped as seen in the previous read", m.DuplicatesDropped.Load()},
		{"stockpulse_sink_failures_total", "Sink backend write failures", m.SinkFailures.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.samples() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer serves metrics until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all metrics keyed by name without the stockpulse_ prefix.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, s := range m.samples() {
		out[s.name[len("stockpulse_"):]] = s.value
	}
	return out
}
