// Package site serves the embedded operator dashboard.
package site

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register attaches the dashboard to r. It claims every path not matched by
// an earlier route, so register it last.
func Register(r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.PathPrefix("/").Handler(NewRootHandler()).Methods(http.MethodGet, http.MethodHead)
}

// RootHandler serves the dashboard assets.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	h.files.ServeHTTP(w, r)
}
