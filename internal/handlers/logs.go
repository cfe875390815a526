// Package handlers implements the HTTP API: JSON log submission, record
// count and health.
package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/ledgerlog-systems/ledgerlog/internal/jsonlog"
	"github.com/ledgerlog-systems/ledgerlog/internal/metrics"
	"github.com/ledgerlog-systems/ledgerlog/internal/models"
	"github.com/ledgerlog-systems/ledgerlog/internal/storage"
)

// maxBodySize bounds JSON submissions; matches the largest datagram the
// UDP paths accept.
const maxBodySize = 65536

// LogHandler serves the /api/logs and /health routes. JSON submissions
// insert synchronously so the response can carry the assigned id.
type LogHandler struct {
	store *storage.Store

	received atomic.Uint64
	written  atomic.Uint64
	errors   atomic.Uint64
}

// Stats is a snapshot of the handler's ingestion counters.
type Stats struct {
	Received uint64
	Written  uint64
	Errors   uint64
}

// Stats returns the current counter snapshot.
func (h *LogHandler) Stats() Stats {
	return Stats{
		Received: h.received.Load(),
		Written:  h.written.Load(),
		Errors:   h.errors.Load(),
	}
}

// NewLogHandler creates the handler over the given store.
func NewLogHandler(store *storage.Store) *LogHandler {
	return &LogHandler{store: store}
}

// Logs dispatches /api/logs by method.
func (h *LogHandler) Logs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.count(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (h *LogHandler) create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	defer r.Body.Close()

	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	entry, err := jsonlog.Extract(body)
	if err != nil {
		h.errors.Add(1)
		metrics.ParseErrors.WithLabelValues(models.SourceRestAPI.String()).Inc()
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.received.Add(1)
	metrics.EventsReceived.WithLabelValues(models.SourceRestAPI.String()).Inc()

	id, err := h.store.Insert(entry)
	if err != nil {
		h.errors.Add(1)
		metrics.StorageErrors.Inc()
		slog.ErrorContext(r.Context(), "log insert failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Storage Error")
		return
	}
	h.written.Add(1)
	metrics.EventsWritten.Inc()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": "created",
	})
}

func (h *LogHandler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.LogCount()
	if err != nil {
		slog.ErrorContext(r.Context(), "log count failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Storage Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

// Health reports liveness.
func (h *LogHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound answers every unrecognized path.
func (h *LogHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Connection", "close")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
