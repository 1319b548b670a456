// Package report defines the stored and rendered outcome of one upload.
package report

import (
	"time"

	"github.com/okian/vibrapulse/internal/domain/advice"
	"github.com/okian/vibrapulse/internal/domain/alert"
	"github.com/okian/vibrapulse/internal/domain/analysis"
	"github.com/okian/vibrapulse/internal/domain/trend"
)

// Result table headers as shown to operators.
const (
	RiskHeader = "Risk (%)"
	KindHeader = "Тип поломки"
)

// Row is one line of the results table.
type Row struct {
	Index int     `json:"index"`
	Risk  float64 `json:"risk"`
	Type  string  `json:"type"`
}

// Report is the full outcome of one analyzed upload, in display order.
type Report struct {
	ID        string         `json:"id"`
	FileName  string         `json:"file_name"`
	Digest    string         `json:"digest"`
	CreatedAt time.Time      `json:"created_at"`
	Columns   []string       `json:"columns"`
	Rows      []Row          `json:"rows"`
	Trend     trend.Estimate `json:"trend"`
	Advice    advice.Advice  `json:"recommendations"`
	Series    []float64      `json:"series"`
	Alert     alert.Summary  `json:"alert"`
}

// Summary is the listing view of a Report.
type Summary struct {
	ID        string         `json:"id"`
	FileName  string         `json:"file_name"`
	CreatedAt time.Time      `json:"created_at"`
	Rows      int            `json:"rows"`
	MaxRisk   float64        `json:"max_risk"`
	Severity  alert.Severity `json:"severity"`
}

// Meta identifies an upload.
type Meta struct {
	ID        string
	FileName  string
	Digest    string
	CreatedAt time.Time
}

// New assembles a Report from an analysis result.
func New(m Meta, columns []string, res analysis.Result) *Report {
	rows := make([]Row, len(res.Predictions))
	for i, p := range res.Predictions {
		rows[i] = Row{Index: p.Row, Risk: p.Risk, Type: p.Label}
	}
	return &Report{
		ID:        m.ID,
		FileName:  m.FileName,
		Digest:    m.Digest,
		CreatedAt: m.CreatedAt.UTC(),
		Columns:   append([]string(nil), columns...),
		Rows:      rows,
		Trend:     res.Trend,
		Advice:    res.Advice,
		Series:    append([]float64(nil), res.Risks...),
		Alert:     res.Alert,
	}
}

// Summary returns the listing view of r.
func (r *Report) Summary() Summary {
	return Summary{
		ID:        r.ID,
		FileName:  r.FileName,
		CreatedAt: r.CreatedAt,
		Rows:      len(r.Rows),
		MaxRisk:   r.Alert.MaxRisk,
		Severity:  r.Alert.Severity,
	}
}

// Upload is a raw file submitted for analysis.
type Upload struct {
	FileName string
	Data     []byte
}
