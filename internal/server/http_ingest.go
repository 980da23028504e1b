package server

import (
	"net/http"

	"github.com/ooAKLoo/AppScope/internal/analytics"
)

// handleTrack handles POST /api/track.
func (s *AnalyticsServer) handleTrack(w http.ResponseWriter, r *http.Request) {
	var in analytics.TrackInput
	if err := decodeBody(w, r, &in); err != nil {
		writeEngineError(w, r, err)
		return
	}
	if _, err := s.engine.Track(r.Context(), in); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSubmitFeedback handles POST /api/feedback.
func (s *AnalyticsServer) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var in analytics.FeedbackInput
	if err := decodeBody(w, r, &in); err != nil {
		writeEngineError(w, r, err)
		return
	}
	if _, err := s.engine.SubmitFeedback(r.Context(), in); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
