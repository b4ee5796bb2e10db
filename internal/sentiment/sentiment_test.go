package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func day(s string) time.Time {
	t, _ := time.Parse(types.DateLayout, s)
	return t
}

func TestInferenceClientPicksTopLabel(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody inferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[{"label":"positive","score":0.91},{"label":"neutral","score":0.07},{"label":"negative","score":0.02}],
			[{"label":"neutral","score":0.2},{"label":"Negative","score":0.7},{"label":"positive","score":0.1}]
		]`))
	}))
	defer srv.Close()

	c := NewInferenceClient(config.SentimentConfig{
		Endpoint: srv.URL + "/models/",
		Model:    "cardiffnlp/twitter-roberta-base-sentiment-latest",
		APIToken: "hf_test",
		Timeout:  5 * time.Second,
	}, testLogger)

	labels, err := c.Classify(context.Background(), []string{"to the moon", "sell everything"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	want := []Label{{Name: "positive", Score: 0.91}, {Name: "negative", Score: 0.7}}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if gotPath != "/models/cardiffnlp/twitter-roberta-base-sentiment-latest" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer hf_test" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if diff := cmp.Diff([]string{"to the moon", "sell everything"}, gotBody.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestInferenceClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, `{"error":"model loading"}`},
		{"short response", http.StatusOK, `[[{"label":"positive","score":0.9}]]`},
		{"empty candidates", http.StatusOK, `[[],[]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewInferenceClient(config.SentimentConfig{Endpoint: srv.URL, Model: "m", Timeout: 5 * time.Second}, testLogger)
			if _, err := c.Classify(context.Background(), []string{"a", "b"}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// stubClassifier labels every text positive and fails on the listed calls.
type stubClassifier struct {
	calls   int
	failOn  map[int]bool
	batches [][]string
}

func (s *stubClassifier) Classify(_ context.Context, texts []string) ([]Label, error) {
	s.calls++
	s.batches = append(s.batches, texts)
	if s.failOn[s.calls] {
		return nil, errors.New("CUDA out of memory")
	}
	out := make([]Label, len(texts))
	for i := range out {
		out[i] = Label{Name: Positive, Score: 0.9}
	}
	return out, nil
}

func comments(n int) []types.Comment {
	out := make([]types.Comment, n)
	for i := range out {
		out[i] = types.Comment{Stock: "AAPL", CommentTime: day("2024-08-01"), Comments: strings.Repeat("x", i+1)}
	}
	return out
}

func TestAnnotateBatchesAndFallsBack(t *testing.T) {
	stub := &stubClassifier{failOn: map[int]bool{2: true}}
	a := NewAnnotator(stub, 4, testLogger)

	scored := a.Annotate(context.Background(), comments(10))

	if len(stub.batches) != 3 || len(stub.batches[2]) != 2 {
		t.Fatalf("expected batches of 4, 4, 2, got %d batches", len(stub.batches))
	}
	if len(scored) != 10 {
		t.Fatalf("expected 10 scored comments, got %d", len(scored))
	}
	for i, s := range scored {
		wantLabel, wantScore := Positive, 0.9
		if i >= 4 && i < 8 {
			wantLabel, wantScore = Failed, 0
		}
		if s.Sentiment != wantLabel || s.Score != wantScore {
			t.Errorf("comment %d: got %s/%v, want %s/%v", i, s.Sentiment, s.Score, wantLabel, wantScore)
		}
		if s.Comments != strings.Repeat("x", i+1) {
			t.Errorf("comment %d out of order", i)
		}
	}
}

type memStore struct {
	comments []types.Comment
	scored   []types.ScoredComment
}

func (m *memStore) Comments(context.Context) ([]types.Comment, error) { return m.comments, nil }

func (m *memStore) Sentiments(context.Context) ([]types.ScoredComment, error) { return m.scored, nil }

func (m *memStore) AppendSentiments(_ context.Context, s []types.ScoredComment) error {
	m.scored = append(m.scored, s...)
	return nil
}

func TestAnnotateStoreDedupes(t *testing.T) {
	cs := comments(3)
	store := &memStore{comments: append(cs, cs[0], cs[2])}

	n, err := NewAnnotator(&stubClassifier{}, 16, testLogger).AnnotateStore(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || len(store.scored) != 3 {
		t.Errorf("expected 3 unique annotations, got %d/%d", n, len(store.scored))
	}
}

func TestAnnotateStoreTwiceLeavesReportsUnchanged(t *testing.T) {
	bull := types.StringPtr("Bullish")
	cs := comments(5)
	cs[1].SentimentTag = bull
	cs[3].CommentTime = day("2024-08-02")
	store := &memStore{comments: cs}
	stub := &stubClassifier{}
	a := NewAnnotator(stub, 2, testLogger)

	if n, err := a.AnnotateStore(context.Background(), store); err != nil || n != 5 {
		t.Fatalf("first run: n=%d err=%v", n, err)
	}
	scores := DailyScores(types.LatestLabels(store.scored))
	report := CheckAccuracy(types.LatestLabels(store.scored))
	calls := stub.calls

	n, err := a.AnnotateStore(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || stub.calls != calls {
		t.Errorf("second run should label nothing, got n=%d and %d new calls", n, stub.calls-calls)
	}
	if diff := cmp.Diff(scores, DailyScores(types.LatestLabels(store.scored))); diff != "" {
		t.Errorf("daily scores changed (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(report, CheckAccuracy(types.LatestLabels(store.scored))); diff != "" {
		t.Errorf("accuracy changed (-first +second):\n%s", diff)
	}
}

func TestAnnotateStoreRetriesFailedLabels(t *testing.T) {
	store := &memStore{comments: comments(4)}
	stub := &stubClassifier{failOn: map[int]bool{2: true}}
	a := NewAnnotator(stub, 2, testLogger)

	if _, err := a.AnnotateStore(context.Background(), store); err != nil {
		t.Fatal(err)
	}
	n, err := a.AnnotateStore(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected the failed batch of 2 to be retried, got %d", n)
	}
	for _, s := range types.LatestLabels(store.scored) {
		if s.Sentiment != Positive {
			t.Errorf("comment %q still labelled %q", s.Comments, s.Sentiment)
		}
	}
}

func scoredOn(stock, date, label string, influence int) types.ScoredComment {
	return types.ScoredComment{
		Comment:   types.Comment{Stock: stock, CommentTime: day(date), Influence: influence},
		Sentiment: label,
	}
}

func TestDailyScores(t *testing.T) {
	scored := []types.ScoredComment{
		scoredOn("MSFT", "2024-08-02", Negative, 0),
		scoredOn("AAPL", "2024-08-02", Positive, 0),
		scoredOn("AAPL", "2024-08-01", Positive, 0),
		scoredOn("AAPL", "2024-08-01", Negative, 0),
		scoredOn("AAPL", "2024-08-01", Neutral, 50),
		scoredOn("AAPL", "2024-08-02", Failed, 0),
		scoredOn("IBM", "2024-08-01", Neutral, 3),
	}

	got := DailyScores(scored)

	want := []DailyScore{
		{Stock: "AAPL", Date: day("2024-08-01"), Score: 0},
		{Stock: "AAPL", Date: day("2024-08-02"), Score: math.Log(3)},
		{Stock: "IBM", Date: day("2024-08-01"), Score: 0},
		{Stock: "MSFT", Date: day("2024-08-02"), Score: -math.Log(2)},
	}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
}

func TestDailyScoresWeighsInfluence(t *testing.T) {
	got := DailyScores([]types.ScoredComment{
		scoredOn("AAPL", "2024-08-01", Positive, 9),
		scoredOn("AAPL", "2024-08-01", Negative, 0),
	})
	pos := math.Log1p(9) + 1
	want := (pos - 1) / (pos + 1) * math.Log1p(2)
	if len(got) != 1 || math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("expected %v, got %+v", want, got)
	}
}

func tagged(tag *string, label string) types.ScoredComment {
	return types.ScoredComment{Comment: types.Comment{SentimentTag: tag}, Sentiment: label}
}

func TestCheckAccuracy(t *testing.T) {
	bull, bear := types.StringPtr("Bullish"), types.StringPtr("Bearish")
	r := CheckAccuracy([]types.ScoredComment{
		tagged(bull, Positive),
		tagged(bull, Positive),
		tagged(bull, Negative),
		tagged(bull, Neutral),
		tagged(bear, Negative),
		tagged(bear, Positive),
		tagged(bear, Failed),
		tagged(nil, Positive),
		tagged(types.StringPtr("Hodl"), Negative),
	})

	if r.Labelled != 7 || r.Evaluated != 6 || r.Correct != 3 {
		t.Errorf("unexpected counts %+v", r)
	}
	if r.Accuracy != 0.5 {
		t.Errorf("expected accuracy 0.5, got %v", r.Accuracy)
	}
	want := [3][3]int{
		{2, 1, 1},
		{1, 1, 0},
		{0, 0, 0},
	}
	if r.Confusion != want {
		t.Errorf("confusion mismatch: got %v, want %v", r.Confusion, want)
	}
	if r.CorrectPredictions() != 3 || r.PositiveAsNegative() != 1 || r.NegativeAsPositive() != 1 {
		t.Errorf("unexpected derived counts %d/%d/%d", r.CorrectPredictions(), r.PositiveAsNegative(), r.NegativeAsPositive())
	}
}

func TestCheckAccuracyNothingEvaluated(t *testing.T) {
	r := CheckAccuracy([]types.ScoredComment{tagged(types.StringPtr("Bullish"), Neutral)})
	if r.Evaluated != 0 || r.Accuracy != 0 {
		t.Errorf("expected zero accuracy, got %+v", r)
	}
}

func TestCommentActivity(t *testing.T) {
	var cs []types.Comment
	for i := 12; i >= 1; i-- {
		cs = append(cs, types.Comment{Stock: "AAPL", CommentTime: day("2024-08-01").AddDate(0, 0, i)})
	}
	for i := 0; i < 3; i++ {
		cs = append(cs, types.Comment{Stock: "MSFT", CommentTime: day("2024-08-01")})
		cs = append(cs, types.Comment{Stock: "IBM", CommentTime: day("2024-08-01")})
	}

	got := CommentActivity(cs)

	if len(got) != 3 {
		t.Fatalf("expected 3 stocks, got %d", len(got))
	}
	if got[0].Stock != "AAPL" || got[0].Total != 12 {
		t.Errorf("expected AAPL first with 12, got %+v", got[0])
	}
	if got[0].TenthComment == nil || !got[0].TenthComment.Equal(day("2024-08-11")) {
		t.Errorf("unexpected tenth comment time %v", got[0].TenthComment)
	}
	if got[1].Stock != "IBM" || got[2].Stock != "MSFT" || got[1].TenthComment != nil {
		t.Errorf("unexpected tail %+v %+v", got[1], got[2])
	}

	path := filepath.Join(t.TempDir(), "artifacts", "comments_amount.csv")
	if err := WriteActivityCSV(path, got); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "stock,total_comments,tenth_comment_time\nAAPL,12,2024-08-11\nIBM,3,\nMSFT,3,\n"
	if string(raw) != want {
		t.Errorf("unexpected report:\n%s", raw)
	}
}
