// Package httptransport assembles the HTTP surface: middleware stack,
// submission routes, health probes, and the metrics endpoint.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"haulready/internal/platform/health"
	"haulready/internal/platform/middleware"
	"haulready/internal/submission/handler"
	"haulready/pkg/httputil"
)

// NewRouter wires all public endpoints with middleware.
func NewRouter(submission *handler.Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
			Success: false,
			Error:   "Not found",
			Code:    "NOT_FOUND",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Success: false,
			Error:   "Method not allowed",
			Code:    "METHOD_NOT_ALLOWED",
		})
	})

	// The form routes require JSON bodies; probes and metrics do not.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		submission.Register(r)
	})

	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
