package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/revision-tracker/internal/service"
)

type TutorHandler struct {
	service *service.TutorService
	logger  *slog.Logger
}

func NewTutorHandler(svc *service.TutorService, logger *slog.Logger) *TutorHandler {
	return &TutorHandler{service: svc, logger: logger}
}

// HandleChat asks the AI tutor for the next reply.
//
// HTTP: POST /api/tutor/chat
//
//	{"messages": [{"role": "user", "text": "..."}], "questionId": "..."}
//
// 503 when no tutor is configured, 502 when the model call fails.
func (h *TutorHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	reply, err := h.service.Chat(r.Context(), userID, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, service.ErrTutorUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "tutor_unavailable",
			Message: "the AI tutor is not configured on this server",
		})
	case isDomainError(err):
		writeError(w, err)
	default:
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "tutor_failed",
			Message: "the AI tutor could not answer, try again shortly",
		})
	}
}
