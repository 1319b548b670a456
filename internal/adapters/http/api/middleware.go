package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"

	logging "github.com/okian/vibrapulse/pkg/logger"
	"github.com/okian/vibrapulse/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(wrapped.statusCode))
		}
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusRequestEntityTooLarge:
		return "too_large"
	case statusCode == http.StatusUnprocessableEntity:
		return "unprocessable"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// HardenOptions configures the outer handler chain.
type HardenOptions struct {
	// AllowedOrigins enables CORS for the listed origins; empty disables it.
	AllowedOrigins []string
	// AccessLog receives Apache combined log lines; nil disables it.
	AccessLog io.Writer
}

// Harden wraps the router with panic recovery, gzip, optional CORS and
// optional access logging.
func Harden(next http.Handler, o HardenOptions) http.Handler {
	h := handlers.CompressHandler(next)
	if len(o.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(o.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", fileNameHeader}),
			handlers.ExposedHeaders([]string{"Location"}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(panicLogger{}))(h)
	if o.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(o.AccessLog, h)
	}
	return h
}

type panicLogger struct{}

func (panicLogger) Println(v ...interface{}) {
	logging.Named("http").Error(context.Background(), "handler panic", logging.String("panic", fmt.Sprint(v...)))
}
