package sentiment

import (
	"strings"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// tagLabels maps the authors' own tags onto model labels.
var tagLabels = map[string]string{
	"Bullish": Positive,
	"Bearish": Negative,
}

// confusionLabels is the row and column order of Report.Confusion.
var confusionLabels = [3]string{Positive, Negative, Neutral}

// Report compares model labels against the authors' tags.
type Report struct {
	// Labelled counts comments carrying a Bullish or Bearish tag.
	Labelled int
	// Evaluated counts labelled comments the model did not call neutral.
	Evaluated int
	// Correct counts evaluated comments whose label matches the tag.
	Correct int
	// Accuracy is Correct/Evaluated, 0 when nothing was evaluated.
	Accuracy float64
	// Confusion[tag][prediction] over positive, negative, neutral.
	// Predictions outside those labels are not counted.
	Confusion [3][3]int
}

// CorrectPredictions is the diagonal of the confusion matrix.
func (r Report) CorrectPredictions() int {
	return r.Confusion[0][0] + r.Confusion[1][1] + r.Confusion[2][2]
}

// PositiveAsNegative counts Bullish posts the model called negative.
func (r Report) PositiveAsNegative() int { return r.Confusion[0][1] }

// NegativeAsPositive counts Bearish posts the model called positive.
func (r Report) NegativeAsPositive() int { return r.Confusion[1][0] }

// CheckAccuracy builds a Report over scored. Untagged comments and comments
// with no model label are ignored.
func CheckAccuracy(scored []types.ScoredComment) Report {
	var r Report
	for _, s := range scored {
		truth, ok := tagLabels[s.Tag()]
		if !ok || s.Sentiment == "" {
			continue
		}
		pred := strings.ToLower(s.Sentiment)
		r.Labelled++

		if ti, pi := labelIndex(truth), labelIndex(pred); ti >= 0 && pi >= 0 {
			r.Confusion[ti][pi]++
		}
		if pred == Neutral {
			continue
		}
		r.Evaluated++
		if pred == truth {
			r.Correct++
		}
	}
	if r.Evaluated > 0 {
		r.Accuracy = float64(r.Correct) / float64(r.Evaluated)
	}
	return r
}

func labelIndex(label string) int {
	for i, l := range confusionLabels {
		if l == label {
			return i
		}
	}
	return -1
}
