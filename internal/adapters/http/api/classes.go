package api

import (
	"net/http"

	"github.com/okian/vibrapulse/internal/domain/advice"
	"github.com/okian/vibrapulse/internal/domain/alert"
	"github.com/okian/vibrapulse/internal/domain/report"
	"github.com/okian/vibrapulse/internal/domain/trend"
)

// ClassesHandler exposes model metadata for the dashboard.
type ClassesHandler struct {
	deps Dependencies
}

// NewClassesHandler creates a new classes handler.
func NewClassesHandler(deps Dependencies) *ClassesHandler {
	return &ClassesHandler{deps: deps}
}

type classView struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type thresholds struct {
	Recommendation float64 `json:"recommendation"`
	Warning        float64 `json:"warning"`
	Critical       float64 `json:"critical"`
	TrendHeadroom  float64 `json:"trend_headroom"`
	TrendWindow    int     `json:"trend_window"`
}

type classesResponse struct {
	Classes    []classView       `json:"classes"`
	Features   []string          `json:"features"`
	Headers    map[string]string `json:"headers"`
	Thresholds thresholds        `json:"thresholds"`
}

// HandleClasses handles GET /api/v1/classes.
func (h *ClassesHandler) HandleClasses(w http.ResponseWriter, _ *http.Request) {
	classes := h.deps.Classes()
	out := classesResponse{
		Classes:  make([]classView, len(classes)),
		Features: h.deps.Features(),
		Headers: map[string]string{
			"risk": report.RiskHeader,
			"type": report.KindHeader,
		},
		Thresholds: thresholds{
			Recommendation: advice.RiskThreshold,
			Warning:        alert.WarningAbove,
			Critical:       alert.CriticalAbove,
			TrendHeadroom:  trend.Headroom,
			TrendWindow:    trend.Window,
		},
	}
	for i, c := range classes {
		out.Classes[i] = classView{Label: c.Label, Kind: c.Kind.String()}
	}
	if out.Features == nil {
		out.Features = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}
