package storage

import (
	"context"
	"errors"
	"log/slog"
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

func sampleComments() []types.Comment {
	return []types.Comment{
		{Stock: "AAPL", CommentTime: day("2024-03-05"), Comments: "to the moon, again", SentimentTag: types.StringPtr("Bullish"), Influence: 9},
		{Stock: "AAPL", CommentTime: day("2024-03-04"), Comments: "selling \"here\"", Influence: 0},
	}
}

func TestCSVStoreHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append("AAPL", sampleComments()[:1]); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append("AAPL", sampleComments()[1:]); err != nil {
		t.Fatalf("second append: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "AAPL.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "stock,comment_time,comments,sentiment_tag,influence"); n != 1 {
		t.Errorf("expected one header row, got %d", n)
	}
	if !strings.Contains(string(data), "AAPL,2024-03-05,\"to the moon, again\",Bullish,9") {
		t.Errorf("unexpected CSV content:\n%s", data)
	}

	path, err := s.Path("AAPL")
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if diff := cmp.Diff(sampleComments(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVStoreRejectsUnsafeSymbols(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "out")
	s, err := NewCSVStore(dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}

	for _, symbol := range []string{"", "../x", "..", "a/b", `a\b`, "/etc/passwd", "x\x00y"} {
		if _, err := s.Path(symbol); !errors.Is(err, types.ErrInvalidSymbol) {
			t.Errorf("Path(%q): expected ErrInvalidSymbol, got %v", symbol, err)
		}
		if err := s.Append(symbol, sampleComments()); !errors.Is(err, types.ErrInvalidSymbol) {
			t.Errorf("Append(%q): expected ErrInvalidSymbol, got %v", symbol, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "x.csv")); !os.IsNotExist(err) {
		t.Error("../x must not be written outside the output dir")
	}

	for _, symbol := range []string{"BRK.B", "AAPL", "..AAPL"} {
		if _, err := s.Path(symbol); err != nil {
			t.Errorf("Path(%q): %v", symbol, err)
		}
	}
}

func TestCSVStoreAppendReleasesFile(t *testing.T) {
	fds, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("open descriptors are not listable here")
	}
	s, _ := NewCSVStore(t.TempDir(), testLogger)
	for range 50 {
		if err := s.Append("AAPL", sampleComments()); err != nil {
			t.Fatal(err)
		}
	}
	after, _ := os.ReadDir("/proc/self/fd")
	if len(after) > len(fds)+2 {
		t.Errorf("descriptors grew from %d to %d across appends", len(fds), len(after))
	}
	path, _ := s.Path("AAPL")
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 100 {
		t.Errorf("expected 100 rows, got %d", len(got))
	}
}

func TestCSVStoreExistingFileGetsNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MSFT.csv")
	if err := os.WriteFile(path, []byte("stock,comment_time,comments,sentiment_tag,influence\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewCSVStore(dir, testLogger)
	if err := s.Append("MSFT", sampleComments()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "sentiment_tag") != 1 {
		t.Errorf("header duplicated:\n%s", data)
	}
}

func openSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "comments.db"), testLogger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	version, err := repo.Migrate(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}
	return repo
}

func TestSQLiteRoundTrip(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	// duplicates are accepted
	if err := repo.AppendComments(ctx, sampleComments()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendComments(ctx, sampleComments()[:1]); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}

	got, err := repo.Comments(ctx)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	want := append(sampleComments(), sampleComments()[0])
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteSentiments(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	scored := []types.ScoredComment{
		{Comment: sampleComments()[0], Sentiment: "positive", Score: 0.91},
		{Comment: sampleComments()[1], Sentiment: "error", Score: 0},
	}
	if err := repo.AppendSentiments(ctx, scored); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := repo.Sentiments(ctx)
	if err != nil {
		t.Fatalf("sentiments: %v", err)
	}
	if diff := cmp.Diff(scored, got); diff != "" {
		t.Errorf("sentiments mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	repo := openSQLite(t)
	if v, err := repo.Migrate(context.Background()); err != nil || v != 2 {
		t.Fatalf("second migrate: version=%d err=%v", v, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, testLogger)
	if !errors.Is(err, types.ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

type failingRepo struct {
	calls int
}

func (f *failingRepo) AppendComments(context.Context, []types.Comment) error {
	f.calls++
	return errors.New("connection reset")
}

func (f *failingRepo) Name() string { return "postgres" }

func TestSinkStoreFailureStillWritesCSV(t *testing.T) {
	dir := t.TempDir()
	csvStore, _ := NewCSVStore(dir, testLogger)
	repo := &failingRepo{}
	sink := NewSink(repo, csvStore, testLogger)

	err := sink.Append(context.Background(), "AAPL", sampleComments())
	var storageErr *types.StorageError
	if !errors.As(err, &storageErr) || storageErr.Backend != "postgres" {
		t.Fatalf("expected postgres StorageError, got %v", err)
	}
	if repo.calls != 1 {
		t.Errorf("expected one store attempt, got %d", repo.calls)
	}

	got, err := ReadCSV(filepath.Join(dir, "AAPL.csv"))
	if err != nil {
		t.Fatalf("csv should be written despite store failure: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 CSV rows, got %d", len(got))
	}
}

func TestSinkBothSucceedAndEmptyBatch(t *testing.T) {
	repo := openSQLite(t)
	csvStore, _ := NewCSVStore(t.TempDir(), testLogger)
	sink := NewSink(repo, csvStore, testLogger)

	if err := sink.Append(context.Background(), "AAPL", nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(csvStore.dir, "AAPL.csv")); !os.IsNotExist(err) {
		t.Error("empty batch should not create a CSV")
	}
	if err := sink.Append(context.Background(), "AAPL", sampleComments()); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := repo.Comments(context.Background())
	if len(got) != 2 {
		t.Errorf("expected 2 stored comments, got %d", len(got))
	}
}
