package server

import (
	"net/http"

	"github.com/ooAKLoo/AppScope/internal/analytics"
)

// handleListApps handles GET /api/apps.
func (s *AnalyticsServer) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.engine.ListApplications(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"apps": apps})
}

// handleDAU handles GET /api/stats/dau?app_id=...&days=...
func (s *AnalyticsServer) handleDAU(w http.ResponseWriter, r *http.Request) {
	appID, err := requiredParam(r, "app_id")
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	days, err := intParam(r, "days", analytics.DefaultDays)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	points, err := s.engine.DAU(r.Context(), appID, days)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}

// handleInstalls handles GET /api/stats/installs?app_id=...&days=...
func (s *AnalyticsServer) handleInstalls(w http.ResponseWriter, r *http.Request) {
	appID, err := requiredParam(r, "app_id")
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	days, err := intParam(r, "days", analytics.DefaultDays)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	stats, err := s.engine.Installs(r.Context(), appID, days)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleRetention handles GET /api/stats/retention?app_id=...
func (s *AnalyticsServer) handleRetention(w http.ResponseWriter, r *http.Request) {
	appID, err := requiredParam(r, "app_id")
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	cohorts, err := s.engine.Retention(r.Context(), appID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": cohorts})
}

// handleListFeedback handles GET /api/feedbacks?app_id=...&limit=...
func (s *AnalyticsServer) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	appID, err := requiredParam(r, "app_id")
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", analytics.DefaultFeedbackLimit)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	items, err := s.engine.Feedback(r.Context(), appID, limit)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}
