// Package inference turns classifier probabilities into per-row predictions.
package inference

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/reading"
)

// Predictor is a pretrained multi-class probabilistic classifier.
// Implementations must be safe for concurrent use.
type Predictor interface {
	// Classes returns the ordered class labels, one per probability column.
	Classes() []string
	// Features returns the expected input column names. Empty means the
	// table is passed positionally.
	Features() []string
	// PredictProba returns one probability vector per input row.
	PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error)
}

// Prediction is the classifier verdict for one ingested row.
type Prediction struct {
	Row           int          `json:"row"`
	Label         string       `json:"label"`
	Kind          failure.Kind `json:"-"`
	Risk          float64      `json:"risk"`
	Probabilities []float64    `json:"probabilities,omitempty"`
}

// Run scores every row of t and returns exactly one Prediction per row.
// The predicted label is resolved against cs, so a predictor whose labels
// drifted from the compiled set fails with failure.ErrUnknownLabel.
func Run(ctx context.Context, p Predictor, cs *failure.ClassSet, t reading.Table) ([]Prediction, error) {
	labels := p.Classes()
	if len(labels) != cs.Len() {
		return nil, fmt.Errorf("%w: predictor has %d classes, compiled %d", ErrShape, len(labels), cs.Len())
	}
	rows, err := Align(t, p.Features())
	if err != nil {
		return nil, err
	}

	proba, err := p.PredictProba(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredict, err)
	}
	if len(proba) != len(rows) {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrShape, len(proba), len(rows))
	}

	out := make([]Prediction, len(proba))
	for i, vec := range proba {
		if len(vec) != cs.Len() {
			return nil, fmt.Errorf("%w: row %d has %d probabilities, want %d", ErrShape, i, len(vec), cs.Len())
		}
		best, err := argmax(vec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		c, err := cs.Resolve(labels[best])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = Prediction{
			Row:           i,
			Label:         c.Label,
			Kind:          c.Kind,
			Risk:          100 * vec[best],
			Probabilities: append([]float64(nil), vec...),
		}
	}
	return out, nil
}

// Align reorders the columns of t to match features. Extra columns are
// ignored. With no declared features the rows are copied as-is.
func Align(t reading.Table, features []string) ([][]float64, error) {
	if len(features) == 0 {
		return t.Clone().Rows, nil
	}
	pos := make([]int, len(features))
	for i, f := range features {
		j := t.Index(f)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingFeature, f)
		}
		pos[i] = j
	}
	rows := make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		vals := make([]float64, len(pos))
		for i, j := range pos {
			vals[i] = row[j]
		}
		rows[r] = vals
	}
	return rows, nil
}

// argmax returns the index of the first maximum.
func argmax(vec []float64) (int, error) {
	best := 0
	for i, v := range vec {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return 0, fmt.Errorf("%w: %v", ErrProbability, v)
		}
		if v > vec[best] {
			best = i
		}
	}
	return best, nil
}

// Risks returns the risk series in row order.
func Risks(preds []Prediction) []float64 {
	out := make([]float64, len(preds))
	for i, p := range preds {
		out[i] = p.Risk
	}
	return out
}
