package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/stockpulse/internal/config"
)

// Label is the top prediction for one text.
type Label struct {
	Name  string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier assigns a sentiment label to each text, in input order.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Label, error)
}

// InferenceClient calls a hosted text-classification model.
//
// Requests POST {"inputs": [...]} to <endpoint>/<model>. The response holds
// one list of candidate labels per input; the highest scoring one wins.
type InferenceClient struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

// NewInferenceClient creates a classifier for cfg.Model at cfg.Endpoint.
func NewInferenceClient(cfg config.SentimentConfig, logger *slog.Logger) *InferenceClient {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.APIToken != "" {
		client.SetAuthToken(cfg.APIToken)
	}

	return &InferenceClient{
		client: client,
		url:    strings.TrimRight(cfg.Endpoint, "/") + "/" + strings.TrimLeft(cfg.Model, "/"),
		logger: logger.With("component", "sentiment_client"),
	}
}

type inferenceRequest struct {
	Inputs  []string       `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

// Classify sends texts as one request.
func (c *InferenceClient) Classify(ctx context.Context, texts []string) ([]Label, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var candidates [][]Label
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(inferenceRequest{
			Inputs:  texts,
			Options: map[string]any{"wait_for_model": true},
		}).
		SetResult(&candidates).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inference request: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(candidates) != len(texts) {
		return nil, fmt.Errorf("inference response: %d results for %d inputs", len(candidates), len(texts))
	}

	labels := make([]Label, len(candidates))
	for i, cands := range candidates {
		best, ok := top(cands)
		if !ok {
			return nil, fmt.Errorf("inference response: no labels for input %d", i)
		}
		labels[i] = best
	}
	c.logger.Debug("batch classified", "size", len(texts))
	return labels, nil
}

func top(cands []Label) (Label, bool) {
	if len(cands) == 0 {
		return Label{}, false
	}
	best := cands[0]
	for _, l := range cands[1:] {
		if l.Score > best.Score {
			best = l
		}
	}
	best.Name = strings.ToLower(best.Name)
	return best, true
}
