package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/query"
	"github.com/sakif/revision-tracker/internal/service"
)

// QuestionHandler serves the question set of the signed-in user.
//
// HTTP only: every rule lives in service.QuestionService, so the handler
// parses the request, calls one service method and renders the result.
type QuestionHandler struct {
	service *service.QuestionService
	logger  *slog.Logger
}

func NewQuestionHandler(svc *service.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{service: svc, logger: logger}
}

// parseListOptions reads ?search=&difficulty=&sort= from the query string.
func parseListOptions(r *http.Request) (query.Options, error) {
	q := r.URL.Query()
	sort, err := query.ParseSortKey(q.Get("sort"))
	if err != nil {
		return query.Options{}, err
	}
	return query.Options{
		Search:     q.Get("search"),
		Difficulty: q.Get("difficulty"),
		Sort:       sort,
	}, nil
}

// HandleList returns the filtered and sorted list.
//
// HTTP: GET /api/questions?search=&difficulty=&sort=topic|date|difficulty&group=topic
//
// With group=topic the response is an object keyed by topic, in fixed topic
// order, instead of an array.
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch group := r.URL.Query().Get("group"); group {
	case "":
		questions, err := h.service.List(r.Context(), userID, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
	case "topic":
		groups, err := h.service.Grouped(r.Context(), userID, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	default:
		writeError(w, apperror.ValidationFailed("group", "group must be topic"))
	}
}

// HandleCreate adds a question.
//
// HTTP: POST /api/questions
// Response: 201 with the stored question
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in service.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	q, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// HandleGet returns one question.
//
// HTTP: GET /api/questions/{id}
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleUpdate replaces the editable fields.
//
// HTTP: PUT /api/questions/{id}
func (h *QuestionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in service.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	q, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleDelete removes a question.
//
// HTTP: DELETE /api/questions/{id}
// Response: 204 No Content
func (h *QuestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevise marks a question revised now.
//
// HTTP: POST /api/questions/{id}/revise
func (h *QuestionHandler) HandleRevise(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q, err := h.service.MarkRevised(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleDue lists the questions due for revision.
//
// HTTP: GET /api/questions/due
func (h *QuestionHandler) HandleDue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	due, err := h.service.Due(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

// HandleRandom picks a question to practise. 404 when the set is empty.
//
// HTTP: GET /api/questions/random
func (h *QuestionHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q, err := h.service.Random(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
