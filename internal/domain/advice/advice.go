// Package advice maps high-risk predictions to maintenance guidance.
package advice

import (
	"fmt"

	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/inference"
)

// RiskThreshold is the exclusive lower bound for a recommendation.
const RiskThreshold = 85.0

// NoActionMessage is emitted when no row triggers a recommendation.
const NoActionMessage = "No high-risk records with a real failure: no action needed"

// Level is the display level of a recommendation.
type Level string

const (
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Recommendation is guidance for one ingested row.
type Recommendation struct {
	Row     int     `json:"row"`
	Label   string  `json:"label"`
	Risk    float64 `json:"risk"`
	Level   Level   `json:"level"`
	Message string  `json:"message"`
}

// Advice is the recommendations section of a report. Items is empty when
// Message carries NoActionMessage.
type Advice struct {
	Items   []Recommendation `json:"items"`
	Message string           `json:"message,omitempty"`
}

type rule struct {
	risk   string
	action string
}

var rules = map[failure.Kind]rule{
	failure.Unbalance: {
		risk:   "unbalance",
		action: "Check rotor balance, reduce load by 10–15%, inspect the shaft. This can lower the risk by 40–60%.",
	},
	failure.Rubbing: {
		risk:   "rubbing",
		action: "Inspect bearings, check for contact between parts, clean deposits.",
	},
	failure.FaultySensor: {
		risk:   "faulty sensor",
		action: "Inspect and replace the vibration or pressure sensor.",
	},
	failure.Misalignment: {
		risk:   "misalignment",
		action: "Realign the shaft and motor, check the mountings.",
	},
}

// Recommend returns one recommendation per prediction that is not Normal and
// has risk above RiskThreshold, in row order.
func Recommend(preds []inference.Prediction) Advice {
	var items []Recommendation
	for _, p := range preds {
		if p.Kind == failure.Normal || p.Risk <= RiskThreshold {
			continue
		}
		items = append(items, For(p))
	}
	if len(items) == 0 {
		return Advice{Items: []Recommendation{}, Message: NoActionMessage}
	}
	return Advice{Items: items}
}

// For builds the recommendation for a single prediction regardless of risk.
func For(p inference.Prediction) Recommendation {
	r := Recommendation{Row: p.Row, Label: p.Label, Risk: p.Risk}
	if ru, ok := rules[p.Kind]; ok {
		r.Level = LevelWarning
		r.Message = fmt.Sprintf("Record %d: high risk of %s. Recommendation: %s", p.Row, ru.risk, ru.action)
		return r
	}
	r.Level = LevelInfo
	r.Message = fmt.Sprintf("Record %d: high risk, type: %s. Recommendation: inspect the pump fully.", p.Row, p.Label)
	return r
}
