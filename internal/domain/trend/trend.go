// Package trend derives a naive time-to-failure message from a risk series.
//
// The series index is the row position in the upload. There is no timestamp,
// so "days" is a label for the heuristic and not a forecast.
package trend

import (
	"encoding/json"
	"fmt"
)

// Status is the branch chosen by Compute.
type Status string

const (
	StatusInsufficient Status = "insufficient"
	StatusUrgent       Status = "urgent"
	StatusLikely       Status = "likely"
	StatusPossible     Status = "possible"
	StatusStable       Status = "stable"
)

const (
	// Window is the number of trailing risk values considered.
	Window = 10
	// GrowthThreshold is the mean step above which risk counts as rising.
	GrowthThreshold = 5.0
	// Headroom is the risk distance divided by growth to get days.
	Headroom = 70.0
)

// Estimate is the outcome of the time-to-failure heuristic.
type Estimate struct {
	Status  Status  `json:"status"`
	Growth  float64 `json:"growth"`
	Days    int     `json:"days,omitempty"`
	Message string  `json:"message"`
}

// Warning reports whether the estimate should be shown as a warning.
func (e Estimate) Warning() bool {
	switch e.Status {
	case StatusUrgent, StatusLikely, StatusPossible:
		return true
	}
	return false
}

// MarshalJSON adds the derived warning flag so clients do not repeat the
// status rules.
func (e Estimate) MarshalJSON() ([]byte, error) {
	type plain Estimate
	return json.Marshal(struct {
		plain
		Warning bool `json:"warning"`
	}{plain(e), e.Warning()})
}

// Compute classifies the trailing Window values of risks.
func Compute(risks []float64) Estimate {
	if len(risks) < Window {
		return Estimate{
			Status:  StatusInsufficient,
			Message: fmt.Sprintf("Not enough data for a time-to-failure estimate (at least %d records required)", Window),
		}
	}

	tail := risks[len(risks)-Window:]
	var sum float64
	for i := 1; i < len(tail); i++ {
		sum += tail[i] - tail[i-1]
	}
	growth := sum / float64(len(tail)-1)

	if growth <= GrowthThreshold {
		return Estimate{Status: StatusStable, Growth: growth, Message: "Risk is not increasing: currently stable"}
	}

	days := int(Headroom / growth)
	e := Estimate{Growth: growth, Days: days}
	switch {
	case days <= 3:
		e.Status = StatusUrgent
		e.Message = "Failure possible within 1–3 days: inspect urgently!"
	case days <= 7:
		e.Status = StatusLikely
		e.Message = fmt.Sprintf("Failure likely in approximately %d–7 days", days)
	default:
		e.Status = StatusPossible
		e.Message = fmt.Sprintf("Failure possible in 7–%d days", days+7)
	}
	return e
}
