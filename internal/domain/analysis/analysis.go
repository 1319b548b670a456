// Package analysis runs one upload through inference and the derived rules.
package analysis

import (
	"context"

	"github.com/okian/vibrapulse/internal/domain/advice"
	"github.com/okian/vibrapulse/internal/domain/alert"
	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/inference"
	"github.com/okian/vibrapulse/internal/domain/reading"
	"github.com/okian/vibrapulse/internal/domain/trend"
)

// Result holds everything derived from one upload.
type Result struct {
	Predictions []inference.Prediction
	Risks       []float64
	Trend       trend.Estimate
	Advice      advice.Advice
	Alert       alert.Summary
}

// Analyze scores t and derives trend, advice and alert. On error no partial
// result is returned.
func Analyze(ctx context.Context, p inference.Predictor, cs *failure.ClassSet, t reading.Table) (Result, error) {
	preds, err := inference.Run(ctx, p, cs, t)
	if err != nil {
		return Result{}, err
	}
	risks := inference.Risks(preds)
	return Result{
		Predictions: preds,
		Risks:       risks,
		Trend:       trend.Compute(risks),
		Advice:      advice.Recommend(preds),
		Alert:       alert.Summarize(risks),
	}, nil
}
