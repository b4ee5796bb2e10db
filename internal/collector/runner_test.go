package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/stockpulse/internal/feed"
	"github.com/IshaanNene/stockpulse/internal/scroll"
	"github.com/IshaanNene/stockpulse/internal/types"
)

type fakeSession struct {
	reader *scriptedReader
	closed bool
}

func (s *fakeSession) Reader() feed.PageReader   { return s.reader }
func (s *fakeSession) Scroller() scroll.Scroller { return &stillScroller{} }
func (s *fakeSession) Snapshot() string          { return "" }
func (s *fakeSession) Close()                    { s.closed = true }

type fakeOpener struct {
	sessions map[string]*fakeSession
	failures map[string]error
	opened   []string
	onOpen   func(symbol string)
}

func (o *fakeOpener) Open(_ context.Context, symbol string) (Session, error) {
	o.opened = append(o.opened, symbol)
	if o.onOpen != nil {
		o.onOpen(symbol)
	}
	if err, ok := o.failures[symbol]; ok {
		return nil, err
	}
	s := &fakeSession{reader: pages(page(symbol + "-post"))}
	if o.sessions == nil {
		o.sessions = make(map[string]*fakeSession)
	}
	o.sessions[symbol] = s
	return s, nil
}

func TestRunnerSequentialAndSessionFailureSkips(t *testing.T) {
	opener := &fakeOpener{failures: map[string]error{
		"MSFT": &types.SessionError{Symbol: "MSFT", Stage: "navigate", Err: errors.New("net::ERR_TIMED_OUT")},
	}}
	sink := &recordingSink{}
	c, _ := newTestCollector(budget(2), sink)
	r := NewRunner(opener, c, 0, testLogger)

	summaries, err := r.Run(context.Background(), []string{"AAPL", "MSFT", "IBM"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if diff := cmp.Diff([]string{"AAPL", "MSFT", "IBM"}, opener.opened); diff != "" {
		t.Errorf("open order mismatch (-want +got):\n%s", diff)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	var se *types.SessionError
	if !errors.As(summaries[1].Err, &se) || se.Stage != "navigate" {
		t.Errorf("expected navigate SessionError for MSFT, got %v", summaries[1].Err)
	}
	if summaries[0].State != BudgetExceeded || summaries[2].State != BudgetExceeded {
		t.Errorf("healthy symbols should run to budget, got %s/%s", summaries[0].State, summaries[2].State)
	}
	for sym, s := range opener.sessions {
		if !s.closed {
			t.Errorf("session for %s was not released", sym)
		}
	}
	if len(sink.batches) != 2 || sink.batches[1][0].Stock != "IBM" {
		t.Errorf("unexpected emitted batches %v", sink.texts())
	}
}

func TestRunnerWrapsPlainOpenErrors(t *testing.T) {
	opener := &fakeOpener{failures: map[string]error{"AAPL": errors.New("chromium not found")}}
	c, _ := newTestCollector(budget(1), &recordingSink{})
	summaries, _ := NewRunner(opener, c, 0, testLogger).Run(context.Background(), []string{"AAPL"})

	var se *types.SessionError
	if !errors.As(summaries[0].Err, &se) || se.Symbol != "AAPL" {
		t.Errorf("expected SessionError for AAPL, got %v", summaries[0].Err)
	}
}

func TestRunnerNoSymbols(t *testing.T) {
	c, _ := newTestCollector(budget(1), &recordingSink{})
	if _, err := NewRunner(&fakeOpener{}, c, 0, testLogger).Run(context.Background(), nil); !errors.Is(err, types.ErrNoSymbols) {
		t.Fatalf("expected ErrNoSymbols, got %v", err)
	}
}

func TestRunnerCancellationStopsFurtherSymbols(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opener := &fakeOpener{onOpen: func(symbol string) {
		if symbol == "AAPL" {
			cancel()
		}
	}}
	c, _ := newTestCollector(budget(50), &recordingSink{})
	summaries, err := NewRunner(opener, c, 0, testLogger).Run(ctx, []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if diff := cmp.Diff([]string{"AAPL"}, opener.opened); diff != "" {
		t.Errorf("open order mismatch (-want +got):\n%s", diff)
	}
	if len(summaries) != 1 || summaries[0].State != Done {
		t.Fatalf("expected a single done summary, got %+v", summaries)
	}
	if !opener.sessions["AAPL"].closed {
		t.Error("session should be released after cancellation")
	}
}

func TestRunnerPausesBetweenSymbols(t *testing.T) {
	c, clock := newTestCollector(budget(1), &recordingSink{})
	start := clock.now()
	r := NewRunner(&fakeOpener{}, c, 5*time.Second, testLogger)

	if _, err := r.Run(context.Background(), []string{"AAPL", "MSFT", "IBM"}); err != nil {
		t.Fatal(err)
	}
	// default scroll pauses are slept too, so only check the symbol pauses are included
	if elapsed := clock.now().Sub(start); elapsed < 10*time.Second {
		t.Errorf("expected at least two 5s symbol pauses, got %s", elapsed)
	}
}
