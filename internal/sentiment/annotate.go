package sentiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// Label names produced by the model and the fallback used for failed batches.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
	Failed   = "error"
)

// Store is the part of a repository the annotation stage reads and writes.
type Store interface {
	Comments(ctx context.Context) ([]types.Comment, error)
	Sentiments(ctx context.Context) ([]types.ScoredComment, error)
	AppendSentiments(ctx context.Context, scored []types.ScoredComment) error
}

// Annotator labels comments in fixed-size batches.
type Annotator struct {
	classifier Classifier
	batchSize  int
	logger     *slog.Logger
}

// NewAnnotator creates an annotator. A batchSize below 1 means 16.
func NewAnnotator(classifier Classifier, batchSize int, logger *slog.Logger) *Annotator {
	if batchSize < 1 {
		batchSize = 16
	}
	return &Annotator{
		classifier: classifier,
		batchSize:  batchSize,
		logger:     logger.With("component", "annotator"),
	}
}

// Annotate returns one ScoredComment per input, in order. A batch the
// classifier rejects is labelled "error" with score 0 and the rest continue.
func (a *Annotator) Annotate(ctx context.Context, comments []types.Comment) []types.ScoredComment {
	out := make([]types.ScoredComment, 0, len(comments))
	for start := 0; start < len(comments); start += a.batchSize {
		end := min(start+a.batchSize, len(comments))
		batch := comments[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Comments
		}

		labels, err := a.classifier.Classify(ctx, texts)
		if err == nil && len(labels) != len(batch) {
			err = fmt.Errorf("%d labels for %d texts", len(labels), len(batch))
		}
		if err != nil {
			a.logger.Warn("batch classification failed", "offset", start, "size", len(batch), "error", err)
			labels = make([]Label, len(batch))
			for i := range labels {
				labels[i] = Label{Name: Failed}
			}
		}

		for i, c := range batch {
			out = append(out, types.ScoredComment{Comment: c, Sentiment: labels[i].Name, Score: labels[i].Score})
		}
		a.logger.Debug("batch annotated", "done", end, "total", len(comments))
	}
	return out
}

// AnnotateStore labels every unique stored comment that has no label yet and
// appends the results. Comments whose last label is "error" are retried. It
// returns the number of annotated comments.
func (a *Annotator) AnnotateStore(ctx context.Context, store Store) (int, error) {
	comments, err := store.Comments(ctx)
	if err != nil {
		return 0, fmt.Errorf("read comments: %w", err)
	}
	existing, err := store.Sentiments(ctx)
	if err != nil {
		return 0, fmt.Errorf("read sentiments: %w", err)
	}
	labelled := make([]types.ScoredComment, 0, len(existing))
	for _, s := range types.LatestLabels(existing) {
		if s.Sentiment != Failed {
			labelled = append(labelled, s)
		}
	}

	unique := types.Dedupe(comments)
	pending := types.Unlabelled(unique, labelled)
	a.logger.Info("annotating comments", "stored", len(comments), "unique", len(unique), "pending", len(pending))

	scored := a.Annotate(ctx, pending)
	if len(scored) == 0 {
		return 0, nil
	}
	if err := store.AppendSentiments(ctx, scored); err != nil {
		return 0, fmt.Errorf("write sentiments: %w", err)
	}
	return len(scored), nil
}
