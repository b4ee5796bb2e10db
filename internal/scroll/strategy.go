// Package scroll decides how far a symbol's feed is advanced between page
// reads and executes that decision against a live page.
package scroll

import (
	"time"

	"github.com/IshaanNene/stockpulse/internal/config"
)

// Kind identifies the scroll behavior of an Action.
type Kind int

const (
	// Pulses scrolls by a fixed offset several times with a pause after each.
	Pulses Kind = iota
	// Settle scrolls to the bottom until the content height stops growing.
	Settle
)

func (k Kind) String() string {
	if k == Settle {
		return "settle"
	}
	return "pulses"
}

// Action is one iteration's scroll plan.
type Action struct {
	Kind Kind

	// Pulses only.
	Offset int
	Count  int
	Pause  time.Duration
	// Tail is slept once after the last pulse.
	Tail time.Duration

	// Settle only.
	Wait      time.Duration
	MaxRounds int
}

// Strategy maps an iteration index to an Action. It holds no state.
type Strategy struct {
	cfg config.ScrollConfig
}

// NewStrategy creates a strategy from the scroll configuration.
func NewStrategy(cfg config.ScrollConfig) *Strategy {
	return &Strategy{cfg: cfg}
}

// Plan returns the action for the given 0-based iteration:
//   - iteration < 5: Pulses of EarlyStep
//   - 5 <= iteration <= 10: Settle
//   - iteration > 10: Pulses of LateStep
func (s *Strategy) Plan(iteration int) Action {
	switch {
	case iteration < 5:
		return s.pulses(s.cfg.EarlyStep, s.cfg.Pulses)
	case iteration <= 10:
		return Action{
			Kind:      Settle,
			Wait:      s.cfg.SettleWait,
			MaxRounds: s.cfg.SettleMaxRounds,
		}
	default:
		return s.pulses(s.cfg.LateStep, s.cfg.Pulses)
	}
}

// Warmup returns the short scroll run once before the first page read.
func (s *Strategy) Warmup() Action {
	return s.pulses(s.cfg.WarmupStep, s.cfg.WarmupPulses)
}

func (s *Strategy) pulses(offset, count int) Action {
	return Action{
		Kind:   Pulses,
		Offset: offset,
		Count:  count,
		Pause:  s.cfg.Pause,
		Tail:   2 * s.cfg.Pause,
	}
}
