// Package alert summarizes a risk series into a single banner.
package alert

import (
	"fmt"
	"math"
)

// Severity of the final alert banner.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
)

// Thresholds are exclusive lower bounds.
const (
	WarningAbove  = 85.0
	CriticalAbove = 90.0
)

var severityNames = [...]string{"ok", "warning", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(severityNames) {
		return nil, fmt.Errorf("alert: invalid severity %d", int(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	for i, n := range severityNames {
		if n == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("alert: unknown severity %q", b)
}

// Summary is the single alert produced per analysis.
type Summary struct {
	Severity Severity `json:"severity"`
	MaxRisk  float64  `json:"max_risk"`
	Message  string   `json:"message"`
}

// Classify maps a maximum risk to its severity.
func Classify(maxRisk float64) Severity {
	switch {
	case maxRisk > CriticalAbove:
		return SeverityCritical
	case maxRisk > WarningAbove:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// Summarize builds the alert for a risk series. An empty series is ok with
// zero risk.
func Summarize(risks []float64) Summary {
	maxRisk := 0.0
	if len(risks) > 0 {
		maxRisk = math.Inf(-1)
		for _, r := range risks {
			maxRisk = math.Max(maxRisk, r)
		}
	}
	s := Summary{Severity: Classify(maxRisk), MaxRisk: maxRisk}
	switch s.Severity {
	case SeverityCritical:
		s.Message = fmt.Sprintf("Critical alert! Max risk: %.1f%%", maxRisk)
	case SeverityWarning:
		s.Message = fmt.Sprintf("High risk! Max risk: %.1f%%", maxRisk)
	default:
		s.Message = fmt.Sprintf("All normal. Max risk: %.1f%%", maxRisk)
	}
	return s
}
