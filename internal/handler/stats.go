package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/service"
)

// StatsHandler serves the dashboard aggregates.
type StatsHandler struct {
	service    *service.QuestionService
	defaultLoc *time.Location
	logger     *slog.Logger
}

// NewStatsHandler creates a StatsHandler. defaultLoc decides calendar days
// when the request names no timezone.
func NewStatsHandler(svc *service.QuestionService, defaultLoc *time.Location, logger *slog.Logger) *StatsHandler {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &StatsHandler{service: svc, defaultLoc: defaultLoc, logger: logger}
}

// HandleStats returns counts, streak, activity heatmap and recent revisions.
//
// HTTP: GET /api/stats?tz=Europe/Berlin
//
// Streak and heatmap days are calendar days in tz; the browser sends its own
// zone so "today" matches what the user sees.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	loc := h.defaultLoc
	if tz := r.URL.Query().Get("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, apperror.ValidationFailed("tz", "tz must be an IANA timezone such as Europe/Berlin"))
			return
		}
		loc = parsed
	}

	st, err := h.service.Stats(r.Context(), userID, loc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
