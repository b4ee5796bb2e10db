// Package collector runs the per-symbol read, dedup, emit and scroll loop and
// sequences it across a universe of symbols.
package collector

import (
	"fmt"
	"time"
)

// State is the collector's lifecycle position. Transitions only move forward:
// Starting -> Collecting -> one of the terminal states.
type State int

const (
	Starting State = iota
	Collecting
	// Done means the run was cancelled at an iteration boundary.
	Done
	BudgetExceeded
	TimeExceeded
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Collecting:
		return "collecting"
	case Done:
		return "done"
	case BudgetExceeded:
		return "budget_exceeded"
	case TimeExceeded:
		return "time_exceeded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further iterations run from s.
func (s State) Terminal() bool {
	return s >= Done
}

// Summary describes one symbol's collection run.
type Summary struct {
	Symbol       string
	State        State
	Iterations   int
	Emitted      int
	Duplicates   int
	Mismatches   int
	Skipped      int
	Failed       int
	SinkFailures int
	// Lost counts records in batches the sink rejected. They are not in
	// Emitted, though a backend other than the failing one may hold them.
	Lost    int
	Elapsed time.Duration

	// Err is set when the symbol's feed session could not be opened; no
	// iteration ran.
	Err error
}
