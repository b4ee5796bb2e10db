package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/stockpulse/internal/sentiment"
	"github.com/IshaanNene/stockpulse/internal/sheet"
	"github.com/IshaanNene/stockpulse/internal/storage"
	"github.com/IshaanNene/stockpulse/internal/types"
)

var analyzeSkipAnnotate bool

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Label stored comments and write the sentiment reports",
		Long: `Read every stored comment and produce:

  - the per-stock activity report (analysis.activity_path)
  - model labels for each unique comment not yet labelled, appended to
    comment_sentiments (earlier "error" labels are retried)
  - model accuracy against the authors' Bullish/Bearish tags
  - daily influence-weighted sentiment scores (analysis.scores_path)`,
		RunE: runAnalyze,
	}

	cmd.Flags().BoolVar(&analyzeSkipAnnotate, "skip-annotate", false, "reuse existing labels instead of calling the model")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	repo, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Database.Redacted(), err)
	}
	defer repo.Close()
	if _, err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	comments, err := repo.Comments(ctx)
	if err != nil {
		return fmt.Errorf("read comments: %w", err)
	}
	activity := sentiment.CommentActivity(types.Dedupe(comments))
	if err := sentiment.WriteActivityCSV(cfg.Analysis.ActivityPath, activity); err != nil {
		return err
	}
	logger.Info("activity report written", "path", cfg.Analysis.ActivityPath, "stocks", len(activity))

	if !analyzeSkipAnnotate {
		classifier := sentiment.NewInferenceClient(cfg.Sentiment, logger)
		annotator := sentiment.NewAnnotator(classifier, cfg.Sentiment.BatchSize, logger)
		n, err := annotator.AnnotateStore(ctx, repo)
		if err != nil {
			return fmt.Errorf("annotate: %w", err)
		}
		logger.Info("comments annotated", "count", n, "model", cfg.Sentiment.Model)
	}

	stored, err := repo.Sentiments(ctx)
	if err != nil {
		return fmt.Errorf("read sentiments: %w", err)
	}
	scored := types.LatestLabels(stored)
	logger.Debug("labels loaded", "stored", len(stored), "unique", len(scored))

	report := sentiment.CheckAccuracy(scored)
	renderAccuracy(report)

	scores := sentiment.DailyScores(scored)
	if err := sheet.WriteDailyScores(cfg.Analysis.ScoresPath, scores); err != nil {
		return err
	}
	logger.Info("daily scores written", "path", cfg.Analysis.ScoresPath, "rows", len(scores))
	return nil
}

func renderAccuracy(r sentiment.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Measure", "Value"})
	t.AppendRows([]table.Row{
		{"Tagged comments", r.Labelled},
		{"Evaluated (non-neutral)", r.Evaluated},
		{"Model accuracy", fmt.Sprintf("%.2f%%", r.Accuracy*100)},
		{"Correct predictions", r.CorrectPredictions()},
		{"Positive as negative", r.PositiveAsNegative()},
		{"Negative as positive", r.NegativeAsPositive()},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
