package feed

import (
	"log/slog"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// AlignStatus reports how a page's timestamps were paired with its bodies.
type AlignStatus int

const (
	// Mismatch means the counts could not be reconciled; no records were produced.
	Mismatch AlignStatus = iota
	// Aligned means timestamps[i] paired with bodies[i].
	Aligned
	// AlignedOffset means the page carried one leading extra body and
	// timestamps[i] paired with bodies[i+1].
	AlignedOffset
)

func (s AlignStatus) String() string {
	switch s {
	case Aligned:
		return "aligned"
	case AlignedOffset:
		return "aligned_offset"
	default:
		return "mismatch"
	}
}

// AlignResult is the outcome of aligning one page.
type AlignResult struct {
	Status     AlignStatus
	Records    types.Batch
	Timestamps int
	Bodies     int
	// Skipped counts pairs dropped because the timestamp or body lookup failed.
	Skipped int
}

// Aligner turns a RawPage into comment records.
type Aligner struct {
	logger *slog.Logger
}

// NewAligner creates an aligner.
func NewAligner(logger *slog.Logger) *Aligner {
	return &Aligner{logger: logger.With("component", "aligner")}
}

// Align pairs timestamps with bodies by position. A mismatch is not an error:
// it is logged and yields an empty batch. Stock is left blank on every record.
func (a *Aligner) Align(page RawPage) AlignResult {
	t, b := len(page.Timestamps), len(page.Bodies)
	res := AlignResult{Timestamps: t, Bodies: b}

	var offset int
	switch {
	case t == b:
		res.Status = Aligned
	case t == b-1:
		res.Status = AlignedOffset
		offset = 1
	default:
		res.Status = Mismatch
		a.logger.Warn("page mismatch, skipping read",
			"timestamps", t,
			"bodies", b,
			"error", types.ErrPageMismatch,
		)
		return res
	}

	res.Records = make(types.Batch, 0, t)
	for i := 0; i < t; i++ {
		c, err := resolve(page.Timestamps[i], page.Bodies[i+offset])
		if err != nil {
			res.Skipped++
			a.logger.Debug("skipping record", "index", i, "error", err)
			continue
		}
		res.Records = append(res.Records, c)
	}
	return res
}
