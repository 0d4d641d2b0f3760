// Package httpapi exposes the design engine over HTTP: submit a proposal
// through the propose-validate-revise cycle, inspect current state, and
// query dependency/invalidation status. It uses net/http's pattern-based
// ServeMux rather than a web framework — the surface is a handful of JSON
// endpoints with no templating, file serving, or multipart needs, which
// stdlib's router covers without pulling in gin-gonic/gin's middleware
// stack (dropped; see DESIGN.md).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/magnet-design/magnet-core/internal/runtime"
)

// NewRouter builds the HTTP handler tree for rt.
func NewRouter(rt *runtime.Runtime) http.Handler {
	h := &handlers{rt: rt}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /v1/state", h.getState)
	mux.HandleFunc("POST /v1/proposals", h.submitProposal)
	mux.HandleFunc("GET /v1/triggers", h.listTriggers)
	mux.HandleFunc("GET /v1/graph/{path}/dependents", h.dependents)

	return withLogging(rt, mux)
}

func withLogging(rt *runtime.Runtime, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.Logger.InfoContext(r.Context(), "http request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
