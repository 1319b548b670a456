// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/vibrapulse/internal/adapters/repository"
	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/inference"
	"github.com/okian/vibrapulse/internal/domain/reading"
	"github.com/okian/vibrapulse/internal/domain/report"
)

// apiPrefix is the versioned root of the business API.
const apiPrefix = "/api/v1"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Analyze scores an upload and stores the resulting report.
	Analyze(ctx context.Context, up report.Upload) (*report.Report, error)

	// Read operations over stored reports.
	Report(ctx context.Context, id string) (*report.Report, error)
	TopReports(ctx context.Context, n int) ([]report.Summary, error)

	// Model metadata.
	Classes() []failure.Class
	Features() []string
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	analyzeHandler *AnalyzeHandler
	reportsHandler *ReportsHandler
	classesHandler *ClassesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		analyzeHandler: NewAnalyzeHandler(deps, o.maxUploadBytes),
		reportsHandler: NewReportsHandler(deps, o.defaultListLimit, o.maxListLimit),
		classesHandler: NewClassesHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	// Routes stay on the root router: mux subrouters answer a method
	// mismatch with 404 instead of 405.
	r.HandleFunc(apiPrefix+"/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze")).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/reports", MetricsMiddleware(s.reportsHandler.HandleList, "reports")).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/reports/{id}", MetricsMiddleware(s.reportsHandler.HandleGet, "report")).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/reports/{id}/chart.svg", MetricsMiddleware(s.reportsHandler.HandleChart, "chart")).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/classes", MetricsMiddleware(s.classesHandler.HandleClasses, "classes")).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status and error code and writes it.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	var le *reading.LoadError
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &le):
		return http.StatusBadRequest, "invalid_upload"
	case errors.Is(err, ErrLimit):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidID), errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, inference.ErrMissingFeature):
		return http.StatusUnprocessableEntity, "missing_feature"
	case errors.Is(err, inference.ErrPredict), errors.Is(err, inference.ErrShape),
		errors.Is(err, inference.ErrProbability), errors.Is(err, failure.ErrUnknownLabel):
		return http.StatusUnprocessableEntity, "model_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
