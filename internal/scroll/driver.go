package scroll

import (
	"context"
	"fmt"
	"time"
)

// Scroller is the subset of browser automation a scroll action needs.
type Scroller interface {
	ScrollBy(y int) error
	ScrollToBottom() error
	ContentHeight() (int, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Apply executes action against s. For Settle it returns the number of
// bottom scrolls performed.
func Apply(ctx context.Context, s Scroller, action Action, sleep SleepFunc) (int, error) {
	switch action.Kind {
	case Settle:
		return settle(ctx, s, action, sleep)
	default:
		for i := 0; i < action.Count; i++ {
			if err := s.ScrollBy(action.Offset); err != nil {
				return i, fmt.Errorf("scroll by %d: %w", action.Offset, err)
			}
			if err := sleep(ctx, action.Pause); err != nil {
				return i + 1, err
			}
		}
		return action.Count, sleep(ctx, action.Tail)
	}
}

// settle scrolls to the bottom until the content height stops changing.
func settle(ctx context.Context, s Scroller, action Action, sleep SleepFunc) (int, error) {
	last, err := s.ContentHeight()
	if err != nil {
		return 0, fmt.Errorf("content height: %w", err)
	}

	rounds := 0
	for rounds < action.MaxRounds {
		if err := s.ScrollToBottom(); err != nil {
			return rounds, fmt.Errorf("scroll to bottom: %w", err)
		}
		rounds++

		if err := sleep(ctx, action.Wait); err != nil {
			return rounds, err
		}

		height, err := s.ContentHeight()
		if err != nil {
			return rounds, fmt.Errorf("content height: %w", err)
		}
		if height == last {
			break // no new content loaded
		}
		last = height
	}
	return rounds, nil
}
