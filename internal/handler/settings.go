package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/service"
)

type SettingsHandler struct {
	service *service.SettingsService
	logger  *slog.Logger
}

func NewSettingsHandler(svc *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{service: svc, logger: logger}
}

// HandleGet returns the revision threshold and its allowed values.
//
// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdate changes the revision threshold.
//
// HTTP: PUT /api/settings {"revisionDays": 3|7|14}
//
// The threshold is server-wide: a change here moves the due lists and stats
// of every account. With SETTINGS_ADMINS set, other users get 403.
// Response: 200 with the new view, 400 for a value outside the allowed set.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		RevisionDays *int `json:"revisionDays"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RevisionDays == nil {
		writeError(w, apperror.ValidationFailed("revisionDays", "revisionDays is required"))
		return
	}

	view, err := h.service.UpdateBy(r.Context(), userID, *req.RevisionDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
