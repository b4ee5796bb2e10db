package collector

import "github.com/IshaanNene/stockpulse/internal/types"

// FilterSeen drops records of current whose body text appears in previous.
// Only the text is compared, so distinct posts with identical text conflate.
// An empty previous keeps everything.
func FilterSeen(current, previous types.Batch) (kept types.Batch, dropped int) {
	if len(previous) == 0 {
		return current, 0
	}
	seen := previous.Texts()
	kept = make(types.Batch, 0, len(current))
	for _, c := range current {
		if _, ok := seen[c.Comments]; ok {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}
