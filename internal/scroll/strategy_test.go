package scroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/stockpulse/internal/config"
)

func testStrategy() *Strategy {
	return NewStrategy(config.DefaultConfig().Scroll)
}

func TestPlanBands(t *testing.T) {
	s := testStrategy()
	cases := []struct {
		iteration int
		kind      Kind
		offset    int
	}{
		{0, Pulses, 1500},
		{4, Pulses, 1500},
		{5, Settle, 0},
		{10, Settle, 0},
		{11, Pulses, 800},
		{1399, Pulses, 800},
	}
	for _, tc := range cases {
		a := s.Plan(tc.iteration)
		if a.Kind != tc.kind {
			t.Errorf("iteration %d: expected %s, got %s", tc.iteration, tc.kind, a.Kind)
		}
		if a.Kind == Pulses {
			if a.Offset != tc.offset || a.Count != 5 || a.Pause != 500*time.Millisecond {
				t.Errorf("iteration %d: unexpected pulses %+v", tc.iteration, a)
			}
		} else if a.MaxRounds != 10 || a.Wait != 2*time.Second {
			t.Errorf("iteration %d: unexpected settle %+v", tc.iteration, a)
		}
	}
}

func TestWarmup(t *testing.T) {
	a := testStrategy().Warmup()
	if a.Kind != Pulses || a.Count != 2 || a.Offset != 1000 {
		t.Errorf("unexpected warmup %+v", a)
	}
}

type fakeScroller struct {
	calls   []string
	heights []int
	reads   int
	failBy  error
}

func (f *fakeScroller) ScrollBy(y int) error {
	f.calls = append(f.calls, "by")
	return f.failBy
}

func (f *fakeScroller) ScrollToBottom() error {
	f.calls = append(f.calls, "bottom")
	return nil
}

func (f *fakeScroller) ContentHeight() (int, error) {
	h := f.heights[len(f.heights)-1]
	if f.reads < len(f.heights) {
		h = f.heights[f.reads]
	}
	f.reads++
	return h, nil
}

type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func TestApplyPulses(t *testing.T) {
	f := &fakeScroller{}
	rec := &sleepRecorder{}
	n, err := Apply(context.Background(), f, testStrategy().Plan(0), rec.sleep)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 5 || len(f.calls) != 5 {
		t.Errorf("expected 5 scrolls, got %d (%d calls)", n, len(f.calls))
	}
	want := []time.Duration{
		500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond,
		500 * time.Millisecond, 500 * time.Millisecond, time.Second,
	}
	if diff := cmp.Diff(want, rec.slept); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestApplySettleStopsWhenHeightStable(t *testing.T) {
	f := &fakeScroller{heights: []int{1000, 2000, 3000, 3000}}
	rec := &sleepRecorder{}
	n, err := Apply(context.Background(), f, testStrategy().Plan(7), rec.sleep)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 bottom scrolls, got %d", n)
	}
}

func TestApplySettleCapsRounds(t *testing.T) {
	heights := make([]int, 50)
	for i := range heights {
		heights[i] = (i + 1) * 100
	}
	f := &fakeScroller{heights: heights}
	n, err := Apply(context.Background(), f, testStrategy().Plan(5), (&sleepRecorder{}).sleep)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 10 {
		t.Errorf("expected settle to stop at 10 rounds, got %d", n)
	}
}

func TestApplyScrollError(t *testing.T) {
	f := &fakeScroller{failBy: errors.New("target closed")}
	if _, err := Apply(context.Background(), f, testStrategy().Plan(20), (&sleepRecorder{}).sleep); err == nil {
		t.Fatal("expected scroll error")
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
