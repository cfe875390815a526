// Package server wires the HTTP routes.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerlog-systems/ledgerlog/internal/handlers"
	"github.com/ledgerlog-systems/ledgerlog/internal/middleware"
)

// NewRouter constructs a ServeMux with the collector API registered.
func NewRouter(h *handlers.LogHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/logs", h.Logs)
	mux.HandleFunc("/health", h.Health)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Everything else is a JSON 404
	mux.HandleFunc("/", h.NotFound)

	return middleware.RequestID(mux)
}
