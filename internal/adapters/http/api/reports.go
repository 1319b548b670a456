package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/vibrapulse/internal/adapters/http/chart"
	"github.com/okian/vibrapulse/internal/domain/report"
)

// ReportsHandler serves stored reports.
type ReportsHandler struct {
	deps         Dependencies
	defaultLimit int
	maxLimit     int
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies, defaultLimit, maxLimit int) *ReportsHandler {
	return &ReportsHandler{deps: deps, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

type listResponse struct {
	Reports []report.Summary `json:"reports"`
	Count   int              `json:"count"`
}

// HandleList handles GET /api/v1/reports?limit=N, highest risk first.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.reports.list"

	limit := h.defaultLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			fail(w, NewKind(op, ErrBadRequest, "limit must be a positive integer"))
			return
		}
		if n > h.maxLimit {
			fail(w, NewKind(op, ErrLimit, fmt.Sprintf("limit must be at most %d", h.maxLimit)))
			return
		}
		limit = n
	}

	items, err := h.deps.TopReports(r.Context(), limit)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if items == nil {
		items = []report.Summary{}
	}
	writeJSON(w, http.StatusOK, listResponse{Reports: items, Count: len(items)})
}

// HandleGet handles GET /api/v1/reports/{id}.
func (h *ReportsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.reports.get"

	rep, err := h.deps.Report(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleChart handles GET /api/v1/reports/{id}/chart.svg.
func (h *ReportsHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.reports.chart"

	rep, err := h.deps.Report(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, rep.Series, chart.DefaultSize); err != nil {
		fail(w, WrapKind(op, ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", chart.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
