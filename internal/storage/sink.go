package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// CommentAppender is the durable half of a Sink.
type CommentAppender interface {
	AppendComments(ctx context.Context, comments []types.Comment) error
	Name() string
}

// Sink fans each emitted batch out to the durable store and the symbol's CSV.
// The two writes are independent: one failing never prevents the other.
type Sink struct {
	repo   CommentAppender
	csv    *CSVStore
	logger *slog.Logger
}

// NewSink creates a sink. Either backend may be nil to disable it.
func NewSink(repo CommentAppender, csv *CSVStore, logger *slog.Logger) *Sink {
	return &Sink{
		repo:   repo,
		csv:    csv,
		logger: logger.With("component", "sink"),
	}
}

// Append writes records for symbol to every backend. Each failure is logged
// and returned as a *types.StorageError joined with the others.
func (s *Sink) Append(ctx context.Context, symbol string, records types.Batch) error {
	if len(records) == 0 {
		return nil
	}

	var errs []error
	if s.repo != nil {
		if err := s.repo.AppendComments(ctx, records); err != nil {
			s.logger.Error("backend store failed", "backend", s.repo.Name(), "symbol", symbol, "records", len(records), "error", err)
			errs = append(errs, &types.StorageError{Backend: s.repo.Name(), Err: err})
		}
	}
	if s.csv != nil {
		if err := s.csv.Append(symbol, records); err != nil {
			s.logger.Error("backend store failed", "backend", s.csv.Name(), "symbol", symbol, "records", len(records), "error", err)
			errs = append(errs, &types.StorageError{Backend: s.csv.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
