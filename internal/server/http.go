package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ooAKLoo/AppScope/internal/analytics"
)

// maxBodyBytes caps ingest request bodies.
const maxBodyBytes = 1 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *AnalyticsServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/track", s.requireKey(writeKeyHeader, s.keys.Write, http.HandlerFunc(s.handleTrack)))
	mux.Handle("POST /api/feedback", s.requireKey(writeKeyHeader, s.keys.Write, http.HandlerFunc(s.handleSubmitFeedback)))
	mux.Handle("GET /api/apps", s.requireKey(readKeyHeader, s.keys.Read, http.HandlerFunc(s.handleListApps)))
	mux.Handle("GET /api/stats/dau", s.requireKey(readKeyHeader, s.keys.Read, http.HandlerFunc(s.handleDAU)))
	mux.Handle("GET /api/stats/installs", s.requireKey(readKeyHeader, s.keys.Read, http.HandlerFunc(s.handleInstalls)))
	mux.Handle("GET /api/stats/retention", s.requireKey(readKeyHeader, s.keys.Read, http.HandlerFunc(s.handleRetention)))
	mux.Handle("GET /api/feedbacks", s.requireKey(readKeyHeader, s.keys.Read, http.HandlerFunc(s.handleListFeedback)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var h http.Handler = mux
	h = s.instrument(h)
	h = corsMiddleware(h)
	h = requestIDMiddleware(h)
	h = recoveryMiddleware(h)
	return h
}

// handleHealth handles GET /health.
func (s *AnalyticsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.engine.Store().Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNAVAILABLE"))
		return
	}
	_, _ = w.Write([]byte("OK"))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps an engine error to a response. Storage failures are
// logged and reported without the driver message.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var inErr analytics.InputError
	var stErr *analytics.StorageError
	switch {
	case errors.As(err, &inErr):
		writeError(w, http.StatusBadRequest, inErr.Error())
	case errors.As(err, &stErr):
		slog.Error("storage error",
			"op", stErr.Op,
			"error", stErr.Err,
			"request_id", RequestIDFrom(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "database error")
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return analytics.InputError("invalid JSON body: " + err.Error())
	}
	return nil
}

// requiredParam returns a non-empty query parameter.
func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", analytics.InputError(name + " is required")
	}
	return v, nil
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, analytics.InputError(name + " must be an integer")
	}
	return n, nil
}
